package types

type ChatState string

const (
	StateUnverified      ChatState = "unverified"
	StateAwaitingLink    ChatState = "awaiting_link"
	StateAwaitingQuality ChatState = "awaiting_quality"
)

type Quality string

const (
	QualityHigh  Quality = "high"
	QualityLow   Quality = "low"
	QualityAudio Quality = "audio"
)

func ParseQuality(s string) (Quality, bool) {
	switch Quality(s) {
	case QualityHigh:
		return QualityHigh, true
	case QualityLow:
		return QualityLow, true
	case QualityAudio:
		return QualityAudio, true
	default:
		return "", false
	}
}

type MediaKind string

const (
	MediaVideo MediaKind = "video"
	MediaAudio MediaKind = "audio"
)
