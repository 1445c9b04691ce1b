// Package secret resolves the text-generation credential.
//
// A Chain asks Providers in order and returns the first non-empty value:
// by default the in-process session value (set through the settings API),
// then the process environment, which LoadDotEnv can seed from .env files.
// When nothing resolves, ErrNoCredential tells the operator how to fix it.
//
// Secret values are never logged.
package secret
