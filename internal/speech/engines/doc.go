// Package engines implements the speech backends: the page agent's browser
// speech, the ElevenLabs voice API, and a self-hosted synthesis server.
package engines
