// Package domain contains the core business entities and their validation
// rules. Entities in this package are persistence-agnostic and carry no
// dependencies on storage, transport, or external services.
package domain
