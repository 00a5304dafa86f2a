package domain

// AuthPhase enumerates the authentication states observed by a consumer.
type AuthPhase string

const (
	AuthLoading         AuthPhase = "loading"
	AuthAuthenticated   AuthPhase = "authenticated"
	AuthError           AuthPhase = "error"
	AuthUnauthenticated AuthPhase = "unauthenticated"
)

// AuthState is pushed to the presentation layer on every transition.
// Identity is set only when Phase is AuthAuthenticated, Message only
// when Phase is AuthError.
type AuthState struct {
	Phase    AuthPhase `json:"phase"`
	Identity *Identity `json:"identity,omitempty"`
	Message  string    `json:"message,omitempty"`
}

// ChatPhase enumerates the feed states observed by a consumer.
type ChatPhase string

const (
	ChatLoading ChatPhase = "loading"
	ChatReady   ChatPhase = "ready"
	ChatFailed  ChatPhase = "error"
)

type ChatState struct {
	Phase   ChatPhase `json:"phase"`
	Message string    `json:"message,omitempty"`
}

func Authenticated(identity Identity) AuthState {
	return AuthState{Phase: AuthAuthenticated, Identity: &identity}
}

func AuthFailure(message string) AuthState {
	return AuthState{Phase: AuthError, Message: message}
}

func Unauthenticated() AuthState {
	return AuthState{Phase: AuthUnauthenticated}
}

func ChatFailure(message string) ChatState {
	return ChatState{Phase: ChatFailed, Message: message}
}
