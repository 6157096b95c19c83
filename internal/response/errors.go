package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrEmailTaken         ErrCode = "EMAIL_TAKEN"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam authoring ────────────────────────────────────────────────
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrTierCountInvalid ErrCode = "TIER_COUNT_INVALID"
	ErrInvalidWindow    ErrCode = "INVALID_WINDOW"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrExamNotAvailable ErrCode = "EXAM_NOT_AVAILABLE"
	ErrAlreadyCompleted ErrCode = "ALREADY_COMPLETED"
	ErrNotEligible      ErrCode = "NOT_ELIGIBLE"
	ErrSessionNotActive ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionNotFound  ErrCode = "SESSION_NOT_FOUND"
	ErrUnknownQuestion  ErrCode = "UNKNOWN_QUESTION"
	ErrInvalidOption    ErrCode = "INVALID_OPTION"
	ErrSubmitFailed     ErrCode = "SUBMIT_FAILED"
	ErrAnswerNotSaved   ErrCode = "ANSWER_NOT_SAVED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid."
	case ErrEmailTaken:
		return "An account with this email already exists."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam authoring ────────────────────────────────────────────────
	case ErrNoQuestions:
		return "Add at least one question to the exam."
	case ErrTierCountInvalid:
		return "Question counts must be set and cannot exceed the available questions."
	case ErrInvalidWindow:
		return "End time must be after start time."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrAlreadyCompleted:
		return "You have already completed this exam."
	case ErrNotEligible:
		return "You are not enrolled for this exam."
	case ErrSessionNotActive:
		return "The exam is not accepting input right now."
	case ErrSessionNotFound:
		return "No exam in progress. Open the exam first."
	case ErrUnknownQuestion:
		return "The question is not part of this exam."
	case ErrInvalidOption:
		return "The selected option is not valid."
	case ErrSubmitFailed:
		return "Failed to submit exam. Please try again."
	case ErrAnswerNotSaved:
		return "Your answer could not be saved. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."

	default:
		return "An unknown error occurred."
	}
}
