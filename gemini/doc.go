// Package gemini adapts the Google Gen AI SDK to insight.TextGenerator.
package gemini
