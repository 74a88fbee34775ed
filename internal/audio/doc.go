// Package audio plays synthesized speech through the system audio device
// using oto/v3, and converts provider audio into the player's PCM format.
package audio
