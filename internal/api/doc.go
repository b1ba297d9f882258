// Package api serves the forum over HTTP.
//
// # Routes
//
//	GET    /api/topic/{id}     topic view with breadcrumb and children
//	GET    /api/thread/{id}    thread view with breadcrumb and posts
//	GET    /api/user           the caller (bearer token required)
//	POST   /api/authenticate   username+password -> {access_token, token_type}
//	POST   /api/signup         create an account, 204
//	POST   /api/message        thread_id+message, 204
//	DELETE /api/message        post_id, 204
//	POST   /api/topic          parent_id+title, 201
//	DELETE /api/topic          topic_id, 204
//	POST   /api/thread         parent_id+title+is_vegan, 201
//	DELETE /api/thread         thread_id, 204
//	GET    /health
//
// Parameters may come from the query string, a urlencoded or multipart
// form, or a flat JSON object. Each handler parses its own request type and
// validates it before calling the forum service.
//
// # Errors
//
// Failures are written as {"detail": "..."}. Domain errors are 400, token
// problems 401 with WWW-Authenticate: Bearer, rate limiting 429, and
// anything unexpected 500 "internal error".
//
// # Middleware
//
// Every request gets an X-Request-ID, a log line and Prometheus samples
// labelled by route pattern. Authenticate and signup are rate limited per
// client IP when Options.RateLimit is set.
package api
