package request

import "strings"

const defaultProtocolVersion = "1.1"

//protocolVersion returns what follows the first '/' of SERVER_PROTOCOL. Values
//without a '/' are passed through untouched.
func protocolVersion(env Params) string {
	v, ok := env.lookup("SERVER_PROTOCOL")
	if !ok {
		return defaultProtocolVersion
	}

	if i := strings.IndexByte(v, '/'); i >= 0 {
		return v[i+1:]
	}

	return v
}

const defaultMethod = "GET"

func methodOf(env Params) string {
	if v, ok := env.lookup("REQUEST_METHOD"); ok {
		return v
	}

	return defaultMethod
}
