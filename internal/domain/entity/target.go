package entity

// Target names a UI element of the chat page. Concrete selectors live in the
// browser adapter so the exchange protocol never depends on page structure.
type Target string

const (
	TargetPromptInput      Target = "prompt_input"
	TargetQueryBubble      Target = "query_bubble"
	TargetCompletionSignal Target = "completion_signal"
	TargetResponseContent  Target = "response_content"
	TargetUploadMenu       Target = "upload_menu"
	TargetUploadFilesItem  Target = "upload_files_item"
	TargetFileInput        Target = "file_input"
	TargetUploadReady      Target = "upload_ready"
	TargetPopupDismiss     Target = "popup_dismiss"
)

func AllTargets() []Target {
	return []Target{
		TargetPromptInput,
		TargetQueryBubble,
		TargetCompletionSignal,
		TargetResponseContent,
		TargetUploadMenu,
		TargetUploadFilesItem,
		TargetFileInput,
		TargetUploadReady,
		TargetPopupDismiss,
	}
}
