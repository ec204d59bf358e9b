package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "auth.userID"
	ctxEmailKey  = "auth.email"
	ctxAuthVia   = "auth.via"

	// SessionUserIDKey is the session value written by the login callback.
	SessionUserIDKey = "uid"
	SessionEmailKey  = "email"
)
