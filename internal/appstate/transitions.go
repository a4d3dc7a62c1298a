package appstate

// Transition tables. A move that is not listed leaves the sub-state untouched.

var analysisTransitions = map[AnalysisStatus][]AnalysisStatus{
	AnalysisIdle:              {AnalysisLoading, AnalysisSuccess},
	AnalysisLoading:           {AnalysisLoading, AnalysisSuccess, AnalysisFailure, AnalysisIdle},
	AnalysisSuccess:           {AnalysisLoading, AnalysisReanalyzing, AnalysisDeletedExternally, AnalysisIdle, AnalysisSuccess},
	AnalysisFailure:           {AnalysisLoading, AnalysisIdle, AnalysisSuccess},
	AnalysisReanalyzing:       {AnalysisSuccess, AnalysisDeletedExternally, AnalysisLoading, AnalysisIdle},
	AnalysisDeletedExternally: {AnalysisSuccess, AnalysisLoading, AnalysisIdle},
}

var chatTransitions = map[ChatStatus][]ChatStatus{
	ChatUnavailable: {ChatReady, ChatUnavailable},
	ChatReady:       {ChatTyping, ChatUnavailable, ChatReady},
	ChatTyping:      {ChatReady, ChatError, ChatTyping, ChatUnavailable},
	ChatError:       {ChatTyping, ChatReady, ChatUnavailable},
}

var disclaimerTransitions = map[DisclaimerStatus][]DisclaimerStatus{
	DisclaimerPending:   {DisclaimerAccepted, DisclaimerDismissed},
	DisclaimerDismissed: {DisclaimerAccepted},
	DisclaimerAccepted:  {},
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestIdle:    {RequestLoading, RequestIdle},
	RequestLoading: {RequestLoading, RequestSuccess, RequestFailure, RequestIdle},
	RequestSuccess: {RequestLoading, RequestIdle},
	RequestFailure: {RequestLoading, RequestIdle},
}

func allowed[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanAnalysis reports whether the analysis machine may move from one status to another.
func CanAnalysis(from, to AnalysisStatus) bool { return allowed(analysisTransitions, from, to) }

func CanChat(from, to ChatStatus) bool { return allowed(chatTransitions, from, to) }

func CanDisclaimer(from, to DisclaimerStatus) bool { return allowed(disclaimerTransitions, from, to) }

func CanRequest(from, to RequestStatus) bool { return allowed(requestTransitions, from, to) }
