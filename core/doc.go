// Package core contains the delegated-authorization contracts, the OAuth2
// flow engine and the dispatching service. Provider adapters, transports and
// store backends depend on this package; core must not depend on them.
package core
