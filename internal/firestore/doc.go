// Package firestore provides the Cloud Firestore client and the user
// and subscription stores backed by it.
//
// Configuration is environment-driven; the client is constructed once
// during startup and injected into the stores, so there is no implicit
// first-call initialization to race on. Missing credentials fail
// construction and are treated as fatal by the caller.
package firestore
