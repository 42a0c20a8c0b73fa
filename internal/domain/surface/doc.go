// Package surface manages live windows: one surface per open space, lazily
// created content views per subspace, geometry persistence, and event
// broadcast. Window construction goes through a backend interface so the
// manager can be exercised without a real shell process.
package surface
