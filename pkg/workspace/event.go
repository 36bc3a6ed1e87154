package workspace

import "encoding/json"

// EventType enumerates every event the reducer understands. The set is closed:
// producers go through a validated append boundary, and unknown types replay as
// no-ops so historical logs stay loadable.
type EventType string

const (
	EventWorkspaceCreated       EventType = "WORKSPACE_CREATED"
	EventWorkspaceTitleUpdated  EventType = "WORKSPACE_TITLE_UPDATED"
	EventItemCreated            EventType = "ITEM_CREATED"
	EventItemUpdated            EventType = "ITEM_UPDATED"
	EventItemDeleted            EventType = "ITEM_DELETED"
	EventBulkItemsCreated       EventType = "BULK_ITEMS_CREATED"
	EventBulkItemsUpdated       EventType = "BULK_ITEMS_UPDATED"
	EventItemMovedToFolder      EventType = "ITEM_MOVED_TO_FOLDER"
	EventItemsMovedToFolder     EventType = "ITEMS_MOVED_TO_FOLDER"
	EventFolderCreatedWithItems EventType = "FOLDER_CREATED_WITH_ITEMS"
	EventWorkspaceSnapshot      EventType = "WORKSPACE_SNAPSHOT"

	// Deprecated folder events. FOLDER_CREATED and FOLDER_UPDATED replay as
	// no-ops; FOLDER_DELETED still clears children because old logs depend on it.
	EventFolderCreated EventType = "FOLDER_CREATED"
	EventFolderUpdated EventType = "FOLDER_UPDATED"
	EventFolderDeleted EventType = "FOLDER_DELETED"
)

// Event is one immutable, versioned entry of a workspace log.
type Event struct {
	ID          string          `json:"id"`
	WorkspaceID string          `json:"workspaceId"`
	Version     int64           `json:"version"`
	Type        EventType       `json:"type"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Timestamp   int64           `json:"timestamp"` // epoch milliseconds
	UserID      string          `json:"userId"`
	UserName    *string         `json:"userName"`
}

// TitlePayload is the payload of WORKSPACE_CREATED and WORKSPACE_TITLE_UPDATED.
type TitlePayload struct {
	Title string `json:"title"`
}

// ItemCreatedPayload carries the full item to add.
type ItemCreatedPayload struct {
	Item Item `json:"item"`
}

// ItemUpdatedPayload carries a partial update. Changes merges shallowly onto
// the item, except changes["data"] which merges one level deep onto Item.Data.
type ItemUpdatedPayload struct {
	ID      string         `json:"id"`
	Changes map[string]any `json:"changes"`
	Source  string         `json:"source,omitempty"`
}

// ItemDeletedPayload identifies the item to remove.
type ItemDeletedPayload struct {
	ID string `json:"id"`
}

// BulkItemsCreatedPayload carries items to append in one step.
type BulkItemsCreatedPayload struct {
	Items []Item `json:"items"`
}

// LayoutUpdate repositions a single item.
type LayoutUpdate struct {
	ID     string  `json:"id"`
	Layout *Layout `json:"layout"`
}

// BulkUpdateKind tags the variant a BULK_ITEMS_UPDATED payload resolves to.
type BulkUpdateKind int

const (
	BulkUpdateNone BulkUpdateKind = iota
	BulkUpdateDelete
	BulkUpdateAdd
	BulkUpdateReplaceAll
	BulkUpdateLayout
)

// BulkItemsUpdatedPayload is the wire shape of BULK_ITEMS_UPDATED: one event
// type overloaded with four mutually exclusive operations. Exactly one is
// applied per event, resolved by Variant.
type BulkItemsUpdatedPayload struct {
	DeletedIDs    []string       `json:"deletedIds,omitempty"`
	AddedItems    []Item         `json:"addedItems,omitempty"`
	Items         []Item         `json:"items,omitempty"` // legacy full replacement
	LayoutUpdates []LayoutUpdate `json:"layoutUpdates,omitempty"`
}

// Variant resolves the overloaded payload to a single operation. The priority
// order is part of the historical wire contract and must not change:
// deletedIds, then addedItems, then the legacy full items list, then
// layoutUpdates. Only the first non-empty field counts.
func (p BulkItemsUpdatedPayload) Variant() BulkUpdateKind {
	switch {
	case len(p.DeletedIDs) > 0:
		return BulkUpdateDelete
	case len(p.AddedItems) > 0:
		return BulkUpdateAdd
	case len(p.Items) > 0:
		return BulkUpdateReplaceAll
	case len(p.LayoutUpdates) > 0:
		return BulkUpdateLayout
	default:
		return BulkUpdateNone
	}
}

// MoveToFolderPayload reassigns one item. A nil FolderID moves it to the root.
type MoveToFolderPayload struct {
	ItemID   string  `json:"itemId"`
	FolderID *string `json:"folderId"`
}

// MoveManyToFolderPayload reassigns several items at once.
type MoveManyToFolderPayload struct {
	ItemIDs  []string `json:"itemIds"`
	FolderID *string  `json:"folderId"`
}

// FolderCreatedWithItemsPayload adds a folder and pulls the listed items into
// it in one step.
type FolderCreatedWithItemsPayload struct {
	Folder  Item     `json:"folder"`
	ItemIDs []string `json:"itemIds"`
}
