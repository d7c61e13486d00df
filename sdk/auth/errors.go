package auth

import "errors"

// ErrLoginInProgress is returned when a login is requested while another attempt is running.
var ErrLoginInProgress = errors.New("mcauth: a login attempt is already in progress")

// ErrNoStore is returned by operations that need persistence when the Manager has no store.
var ErrNoStore = errors.New("mcauth: no session store configured")
