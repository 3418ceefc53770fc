package llm

// FailureKind classifies why a gateway call produced no usable text. The
// zero value means success. Callers branch on OK() only; the kind exists for
// logging and for the rate-limit fallback rule.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureRateLimited
	FailureAuth
	FailureBadRequest
	FailureConnection
	FailureTimeout
	FailureServer
	FailureEmpty
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRateLimited:
		return "rate_limited"
	case FailureAuth:
		return "auth"
	case FailureBadRequest:
		return "bad_request"
	case FailureConnection:
		return "connection"
	case FailureTimeout:
		return "timeout"
	case FailureServer:
		return "server"
	case FailureEmpty:
		return "empty_response"
	}
	return "other"
}

// remediationHint returns the operator guidance logged next to a failure.
func remediationHint(k FailureKind) string {
	switch k {
	case FailureRateLimited:
		return "wait a few minutes before trying again, or upgrade the plan"
	case FailureAuth:
		return "check OPENROUTER_API_KEY in the environment or .env file"
	case FailureBadRequest:
		return "check the prompt format or model parameters"
	case FailureConnection:
		return "check the network connection"
	case FailureTimeout:
		return "the request took too long, it will be retried on the next event"
	case FailureServer:
		return "the provider is having issues, try again in a few minutes"
	case FailureEmpty:
		return "the model returned no choices, possibly overloaded"
	}
	return "likely a code issue rather than a provider issue"
}

// Result is the outcome of a gateway completion: either text or a failure
// kind, never both.
type Result struct {
	Text string
	Kind FailureKind
}

func Success(text string) Result {
	return Result{Text: text}
}

func Failure(kind FailureKind) Result {
	return Result{Kind: kind}
}

func (r Result) OK() bool {
	return r.Kind == FailureNone
}
