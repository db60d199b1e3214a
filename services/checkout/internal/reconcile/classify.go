package reconcile

// Bucket groups gateway transaction statuses by the transition they cause.
type Bucket int

const (
	BucketUnknown Bucket = iota
	BucketSuccess
	BucketFailure
	BucketPending
)

func (b Bucket) String() string {
	switch b {
	case BucketSuccess:
		return "success"
	case BucketFailure:
		return "failure"
	case BucketPending:
		return "pending"
	default:
		return "unknown"
	}
}

// Classify maps a raw transaction_status. Gateway side timeouts arrive as
// expire and are handled like cancel and deny.
func Classify(transactionStatus string) Bucket {
	switch transactionStatus {
	case "capture", "settlement":
		return BucketSuccess
	case "cancel", "deny", "expire":
		return BucketFailure
	case "pending":
		return BucketPending
	default:
		return BucketUnknown
	}
}
