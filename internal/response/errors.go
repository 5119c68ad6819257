package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionActive      ErrCode = "SESSION_ALREADY_ACTIVE"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam window / state ───────────────────────────────────────────
	ErrExamNotOpenYet    ErrCode = "EXAM_NOT_OPEN_YET"
	ErrExamClosed        ErrCode = "EXAM_CLOSED"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrNotSubmitted      ErrCode = "NOT_SUBMITTED"
	ErrAttemptNotStarted ErrCode = "ATTEMPT_NOT_STARTED"

	// ─── School exam token ─────────────────────────────────────────────
	ErrExamTokenNotSet   ErrCode = "EXAM_TOKEN_NOT_SET"
	ErrExamTokenInactive ErrCode = "EXAM_TOKEN_INACTIVE"
	ErrExamTokenInvalid  ErrCode = "EXAM_TOKEN_INVALID"
	ErrExamTokenExpired  ErrCode = "EXAM_TOKEN_EXPIRED"

	// ─── Exam authoring ────────────────────────────────────────────────
	ErrNotExamOwner     ErrCode = "NOT_EXAM_OWNER"
	ErrNoQuestions      ErrCode = "NO_QUESTIONS"
	ErrExamNotDraft     ErrCode = "EXAM_NOT_DRAFT"
	ErrNotEssayQuestion ErrCode = "NOT_ESSAY_QUESTION"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email/NISN atau kata sandi salah."
	case ErrSessionActive:
		return "Anda sudah login di perangkat lain."
	case ErrSessionInvalidated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrTokenRequired:
		return "Token autentikasi diperlukan."
	case ErrTokenInvalid:
		return "Token autentikasi tidak valid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Anda tidak memiliki izin untuk mengakses sumber daya ini."
	case ErrStudentAccessOnly:
		return "Sumber daya ini terbatas untuk siswa."
	case ErrTeacherAccessOnly:
		return "Sumber daya ini terbatas untuk guru."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Exam window / state ───────────────────────────────────────────
	case ErrExamNotOpenYet:
		return "Ujian belum dibuka."
	case ErrExamClosed:
		return "Ujian sudah ditutup."
	case ErrAlreadySubmitted:
		return "Ujian sudah dikumpulkan dan tidak dapat diubah."
	case ErrNotSubmitted:
		return "Ujian belum dikumpulkan."
	case ErrAttemptNotStarted:
		return "Ujian belum dimulai."

	// ─── School exam token ─────────────────────────────────────────────
	case ErrExamTokenNotSet:
		return "Token ujian sekolah belum diatur."
	case ErrExamTokenInactive:
		return "Token ujian sekolah sedang tidak aktif."
	case ErrExamTokenInvalid:
		return "Token ujian salah."
	case ErrExamTokenExpired:
		return "Token ujian sudah kedaluwarsa."

	// ─── Exam authoring ────────────────────────────────────────────────
	case ErrNotExamOwner:
		return "Anda bukan pembuat ujian ini."
	case ErrNoQuestions:
		return "Ujian ini tidak memiliki soal."
	case ErrExamNotDraft:
		return "Ujian ini tidak dalam status draft."
	case ErrNotEssayQuestion:
		return "Soal ini bukan soal essay."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
