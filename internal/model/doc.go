// Package model defines the records exchanged with the AutoFilm server.
//
// Field names follow the server's JSON schema (snake_case tags).
//
// Conventions:
//   - Timestamps: Time, which accepts RFC 3339 and the server's zone-less ISO form
//   - Progress: float64 percent (0-100)
//   - IDs: string task ids as configured on the server
package model
