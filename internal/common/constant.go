// Package common contains shared constants, the job status vocabulary and
// sentinel errors used across MindWell client and server components.
package common

// AuthorizationHeaderName carries the bearer access token on HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerPrefix precedes the JWT inside the Authorization header.
const BearerPrefix = "Bearer "

// TranscriptionLanguage is the language hint passed to the speech-to-text provider.
const TranscriptionLanguage = "pt"

// FallbackErrorMessage is shown when a failed job carries no error message.
const FallbackErrorMessage = "audio processing failed"
