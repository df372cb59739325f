package application

import "expvar"

// Published under /debug/vars when debug metrics are enabled.
var (
	loginSuccesses = expvar.NewInt("auth_login_success")
	loginFailures  = expvar.NewMap("auth_login_failure")
)
