// Package templates holds the server-rendered HTML views. Edit the .templ
// sources and regenerate with `templ generate`; the *_templ.go output is
// committed so the module builds without the generator.
package templates
