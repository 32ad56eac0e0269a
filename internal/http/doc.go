// Package http provides JSON handlers and middleware for the camp API.
//
// The router exposes the following endpoints:
//   - POST /guests, GET /guests/{id}, DELETE /guests/{id}; POST /staff,
//     GET /staff/{id}: people registration. DELETE deactivates.
//   - POST /rooms, POST /rooms/{id}/beds, GET /rooms/{id}/beds, GET /beds/{id},
//     POST /equipment, GET /equipment, GET /equipment/{id}: resource catalog.
//   - DELETE /rooms/{id}, DELETE /beds/{id}, DELETE /equipment/{id}: soft delete,
//     rejected with 409 while an active assignment holds the resource.
//   - POST /assignments/beds, POST /assignments/equipment and their
//     /assignments/{kind}/{id}/release counterparts; POST /occupancy/reconcile.
//   - POST /lessons, GET /lessons/{id}, POST /lessons/{id}/assignments,
//     POST /shifts, DELETE /shifts/series/{id}, GET /commitments,
//     DELETE /commitments/{id}, POST /recurrence/expand: staff and guest schedules.
//     Conflicts answer 409 with a "conflicts" report naming every blocked actor.
//   - POST /bookables, GET /bookables, GET /bookables/{id}/cutoff,
//     PUT /bookables/{id}/booking, POST /bookables/reset, DELETE /bookables/{id},
//     PUT /series/{id}, DELETE /series/{id}: meals, events and booking cutoffs.
//
// Mutations read the acting staff member from the X-Actor-ID header. Request
// and response DTOs live alongside their handlers.
package http
