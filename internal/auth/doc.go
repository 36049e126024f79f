// Package auth obtains and caches OAuth 2.0 credentials for the Google
// Photos Library API.
//
// The credentials directory holds two files:
//
//	credentials/
//	├── client_secret.json  // OAuth client of type "Desktop app", from the Cloud Console
//	└── token.json          // cached token, written by Manager
//
// Manager.Credential returns a valid token, in order of preference from
// memory, from token.json, by refreshing the cached token, or through the
// interactive consent flow. The consent flow prints an authorization URL and
// waits for the browser redirect on a loopback server:
//
//	m := auth.NewManager("~/gphotos-backup/credentials",
//	    auth.WithRedirectPort(8080),
//	    auth.WithPrompt(func(url string) { fmt.Println("Open:", url) }),
//	)
//	client, err := m.HTTPClient(ctx)
//
// Every failure is returned as a *model.AuthError.
package auth
