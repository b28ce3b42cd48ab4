package payloads

// Виды заданий очистки
const (
	CleanupKindBlob       = "blob"
	CleanupKindLegacyFile = "legacy_file"
)

// CleanupPayload — задание удалить файл, на который больше не ссылается ни одна запись.
type CleanupPayload struct {
	Kind   string `json:"kind"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}
