// Package secure provides memory-safe storage for credentials that stay
// resident between generation and use, such as the admin password held
// while the user-management client authenticates against the tracking
// server.
package secure
