// Package schemas embeds the JSON Schema documents request bodies are checked against.
package schemas

import "embed"

const EventBand = "EventBand.json"

//go:embed *.json
var FS embed.FS
