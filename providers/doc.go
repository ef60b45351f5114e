// Package providers contains the shared pieces of the built-in provider
// adapters: the OAuth2 client configuration base and the authenticated JSON
// fetch used to list remote resources.
//
// Concrete adapters live in the hubspot, airtable and notion subpackages.
package providers
