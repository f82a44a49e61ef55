// Package netatmo implements the Energy API client used by the bridge.
//
// The client holds a single OAuth2 token session shared by the poller,
// the corrector, the monitor and the REST facade. Refreshes are
// serialized behind a mutex, and any request rejected with 401 or 403
// refreshes the token and retries exactly once before surfacing the
// vendor's answer as an *APIError.
package netatmo
