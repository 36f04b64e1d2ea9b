package gemini

import _ "embed"

// defaultPromptTemplate is the embedded classification prompt, used
// when no override file is configured. It receives a promptData value.
//
//go:embed prompt.tmpl
var defaultPromptTemplate string
