package workspace

import "encoding/json"

// Reduce applies one event to a state and returns the next state.
//
// Reduce is pure and total: the input state is never mutated, every event type
// has a defined transition, and malformed payloads or references to missing
// items degrade to no-ops rather than errors. It is order-sensitive; the append
// protocol, not the reducer, guarantees events arrive in version order.
func Reduce(s State, ev Event) State {
	switch ev.Type {
	case EventWorkspaceCreated, EventWorkspaceTitleUpdated:
		var p TitlePayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return s
		}
		next := s.clone()
		next.GlobalTitle = p.Title
		return next

	case EventItemCreated:
		var p ItemCreatedPayload
		if json.Unmarshal(ev.Payload, &p) != nil || p.Item.ID == "" {
			return s
		}
		next := s.clone()
		next.Items = append(next.Items, stamp(p.Item, ev.Timestamp))
		return next

	case EventItemUpdated:
		var p ItemUpdatedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return s
		}
		i := s.indexOf(p.ID)
		if i < 0 {
			// Dangling reference, e.g. an update that raced a delete. No-op.
			return s
		}
		next := s.clone()
		next.Items[i] = applyChanges(next.Items[i], p.Changes, ev.Timestamp)
		return next

	case EventItemDeleted:
		var p ItemDeletedPayload
		if json.Unmarshal(ev.Payload, &p) != nil || s.indexOf(p.ID) < 0 {
			return s
		}
		return deleteItem(s, p.ID)

	case EventBulkItemsCreated:
		var p BulkItemsCreatedPayload
		if json.Unmarshal(ev.Payload, &p) != nil || len(p.Items) == 0 {
			return s
		}
		next := s.clone()
		for _, it := range p.Items {
			next.Items = append(next.Items, stamp(it, ev.Timestamp))
		}
		return next

	case EventBulkItemsUpdated:
		var p BulkItemsUpdatedPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return s
		}
		return applyBulkUpdate(s, p, ev.Timestamp)

	case EventItemMovedToFolder:
		var p MoveToFolderPayload
		if json.Unmarshal(ev.Payload, &p) != nil || p.ItemID == "" {
			return s
		}
		return moveItems(s, []string{p.ItemID}, p.FolderID, ev.Timestamp)

	case EventItemsMovedToFolder:
		var p MoveManyToFolderPayload
		if json.Unmarshal(ev.Payload, &p) != nil || len(p.ItemIDs) == 0 {
			return s
		}
		return moveItems(s, p.ItemIDs, p.FolderID, ev.Timestamp)

	case EventFolderCreatedWithItems:
		var p FolderCreatedWithItemsPayload
		if json.Unmarshal(ev.Payload, &p) != nil || p.Folder.ID == "" {
			return s
		}
		next := s.clone()
		next.Items = append(next.Items, stamp(p.Folder, ev.Timestamp))
		return moveItems(next, p.ItemIDs, &p.Folder.ID, ev.Timestamp)

	case EventWorkspaceSnapshot:
		var p State
		if json.Unmarshal(ev.Payload, &p) != nil {
			return s
		}
		// Wholesale replacement; only the workspace identity survives.
		p.WorkspaceID = s.WorkspaceID
		if p.Items == nil {
			p.Items = []Item{}
		}
		return p

	case EventFolderDeleted:
		// Legacy model where folders were not items: nothing to remove, but
		// children still reparent to root.
		var p ItemDeletedPayload
		if json.Unmarshal(ev.Payload, &p) != nil || p.ID == "" {
			return s
		}
		next := s.clone()
		for i := range next.Items {
			if next.Items[i].FolderID != nil && *next.Items[i].FolderID == p.ID {
				next.Items[i].FolderID = nil
			}
		}
		return next

	case EventFolderCreated, EventFolderUpdated:
		// Accepted for backward compatibility with historical logs.
		return s

	default:
		return s
	}
}

// Replay left-folds Reduce over events starting from base. Pass NewState(id)
// when no snapshot state is available; a WORKSPACE_SNAPSHOT event inside the
// sequence folds like any other event.
func Replay(events []Event, base State) State {
	s := base
	for _, ev := range events {
		s = Reduce(s, ev)
	}
	return s
}

func stamp(it Item, ts int64) Item {
	it.LastModified = ts
	return it
}

// applyChanges merges a partial update onto an item. Envelope fields replace
// shallowly; "data" merges one level deep so a producer can set one data key
// (say ocrStatus) without clobbering siblings written earlier.
func applyChanges(it Item, changes map[string]any, ts int64) Item {
	for k, v := range changes {
		switch k {
		case "name":
			if s, ok := v.(string); ok {
				it.Name = s
			}
		case "type":
			if s, ok := v.(string); ok {
				it.Type = ItemType(s)
			}
		case "folderId":
			it.FolderID = asStringPtr(v)
		case "layout":
			it.Layout = asLayout(v)
		case "data":
			if m, ok := v.(map[string]any); ok {
				it.Data = mergeData(it.Data, m)
			}
		}
	}
	it.LastModified = ts
	return it
}

// mergeData merges exactly one level: top-level keys of changes overwrite,
// untouched keys of old survive, nested values replace wholesale. This is a
// deliberate partial-update convenience, not a generic deep merge.
func mergeData(old, changes map[string]any) map[string]any {
	out := make(map[string]any, len(old)+len(changes))
	for k, v := range old {
		out[k] = v
	}
	for k, v := range changes {
		out[k] = v
	}
	return out
}

// deleteItem removes the item. If it was a folder its children reparent to the
// root: FolderID and Layout cleared, never cascade-deleted.
func deleteItem(s State, id string) State {
	i := s.indexOf(id)
	removed := s.Items[i]
	items := make([]Item, 0, len(s.Items)-1)
	for _, it := range s.Items {
		if it.ID == id {
			continue
		}
		if removed.Type == ItemFolder && it.FolderID != nil && *it.FolderID == id {
			it.FolderID = nil
			it.Layout = nil
		}
		items = append(items, it)
	}
	return State{WorkspaceID: s.WorkspaceID, GlobalTitle: s.GlobalTitle, Items: items}
}

// moveItems reassigns the listed items and always clears their layout so the
// client lays them out fresh in the new container.
func moveItems(s State, ids []string, folderID *string, ts int64) State {
	next := s.clone()
	for _, id := range ids {
		i := next.indexOf(id)
		if i < 0 {
			continue
		}
		next.Items[i].FolderID = folderID
		next.Items[i].Layout = nil
		next.Items[i].LastModified = ts
	}
	return next
}

func applyBulkUpdate(s State, p BulkItemsUpdatedPayload, ts int64) State {
	switch p.Variant() {
	case BulkUpdateDelete:
		dead := make(map[string]bool, len(p.DeletedIDs))
		for _, id := range p.DeletedIDs {
			dead[id] = true
		}
		next := s.clone()
		items := next.Items[:0]
		for _, it := range next.Items {
			if !dead[it.ID] {
				items = append(items, it)
			}
		}
		next.Items = items
		return next
	case BulkUpdateAdd:
		next := s.clone()
		for _, it := range p.AddedItems {
			next.Items = append(next.Items, stamp(it, ts))
		}
		return next
	case BulkUpdateReplaceAll:
		next := s.clone()
		items := make([]Item, 0, len(p.Items))
		for _, it := range p.Items {
			items = append(items, stamp(it, ts))
		}
		next.Items = items
		return next
	case BulkUpdateLayout:
		next := s.clone()
		for _, lu := range p.LayoutUpdates {
			i := next.indexOf(lu.ID)
			if i < 0 {
				continue
			}
			next.Items[i].Layout = lu.Layout
			next.Items[i].LastModified = ts
		}
		return next
	default:
		return s
	}
}

func asStringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func asLayout(v any) *Layout {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	l := &Layout{}
	if f, ok := m["x"].(float64); ok {
		l.X = f
	}
	if f, ok := m["y"].(float64); ok {
		l.Y = f
	}
	if f, ok := m["w"].(float64); ok {
		l.W = f
	}
	if f, ok := m["h"].(float64); ok {
		l.H = f
	}
	return l
}
