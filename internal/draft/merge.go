package draft

import "github.com/akarpov87/storysync/internal/models"

// Merge reconciles a local draft with the server copy of the same logical
// record. It is pure and deterministic; both arguments must be non-nil (a
// record that has never been persisted server-side has nothing to merge
// against, and the caller should create it from the draft instead).
//
// When local.LastSaved is later than remote.UpdatedAt the draft wins: the
// result carries the remote identity and creation metadata (ID, Kind,
// CreatedBy, CreatedAt) and everything else from the draft.
//
// Otherwise remote wins, and only fields whose local value actually differs
// from the remote value are overlaid on top of it. The asymmetry is
// intentional: it keeps server-side changes (say, a publish-status flip by
// another editor) when the local edit is stale.
func Merge(local *models.LocalDraft, remote *models.Record) *models.Record {
	if local.LastSaved.After(remote.UpdatedAt) {
		out := local.Record.Clone()
		out.ID = remote.ID
		out.Kind = remote.Kind
		out.CreatedBy = remote.CreatedBy
		out.CreatedAt = remote.CreatedAt
		return out
	}

	out := remote.Clone()
	for k, lv := range local.Fields {
		rv, ok := remote.Fields[k]
		if ok && models.FieldEqual(rv, lv) {
			continue
		}
		if out.Fields == nil {
			out.Fields = make(map[string]any)
		}
		out.Fields[k] = lv
	}
	return out
}
