// Package adblock matches request URLs against a wildcard blocklist. A
// filter is installed on a storage partition when its surface is created.
package adblock
