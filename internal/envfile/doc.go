// Package envfile generates the stack's .env file from its .env.example
// template, replacing placeholder values with cryptographically secure
// secrets.
//
// The engine is line-oriented: every line of the template appears in the
// output in the same position, with only assignment values rewritten. Values
// that reference runtime environment variables (${...}) are never touched,
// and an already-generated file that contains no placeholder markers is left
// exactly as it is.
package envfile
