// Package configs provides the embedded configuration template shipped
// with geocat. Embedding it at build time keeps 'geocat config init'
// working in every distribution, source builds and binaries alike.
package configs

import _ "embed"

// ExampleConfig is the annotated default configuration template.
//
//go:embed config.example.yaml
var ExampleConfig string
