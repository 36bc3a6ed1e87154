// Package workspace defines the workspace aggregate, the event vocabulary of
// its append-only log, and the pure reducer that derives current state by
// replaying that log. Nothing in this package performs I/O; replaying the same
// events from the same base state always produces the same result.
package workspace

// ItemType discriminates the polymorphic item variants.
type ItemType string

const (
	ItemNote      ItemType = "note"
	ItemFlashcard ItemType = "flashcard"
	ItemQuiz      ItemType = "quiz"
	ItemPDF       ItemType = "pdf"
	ItemYouTube   ItemType = "youtube"
	ItemImage     ItemType = "image"
	ItemAudio     ItemType = "audio"
	ItemFolder    ItemType = "folder"
)

// Layout is the canvas placement of an item. Nil means the client must lay the
// item out fresh; moves between containers always reset it.
type Layout struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Item is one entity on the workspace canvas. Data carries the variant-specific
// fields as an opaque JSON object; the reducer never inspects its shape, it only
// merges it one level deep on update.
//
// FolderID is a non-owning reference to another item of type folder. Deleting a
// folder clears FolderID on its former children rather than deleting them.
type Item struct {
	ID           string         `json:"id"`
	Type         ItemType       `json:"type"`
	Name         string         `json:"name"`
	Data         map[string]any `json:"data,omitempty"`
	FolderID     *string        `json:"folderId"`
	Layout       *Layout        `json:"layout"`
	LastModified int64          `json:"lastModified"`
}

// State is the workspace aggregate. It is derived, never persisted on its own
// except as the payload of a WORKSPACE_SNAPSHOT event.
type State struct {
	WorkspaceID string `json:"workspaceId"`
	GlobalTitle string `json:"globalTitle"`
	Items       []Item `json:"items"`
}

// NewState returns the empty pre-creation state for a workspace.
func NewState(workspaceID string) State {
	return State{WorkspaceID: workspaceID, Items: []Item{}}
}

// clone copies the state with a fresh items slice so the reducer can rewrite
// entries without mutating its input. Item Data maps are shared until an update
// actually touches them; mergeData always allocates a new map.
func (s State) clone() State {
	items := make([]Item, len(s.Items))
	copy(items, s.Items)
	return State{WorkspaceID: s.WorkspaceID, GlobalTitle: s.GlobalTitle, Items: items}
}

// indexOf returns the position of the item with the given id, or -1.
func (s State) indexOf(id string) int {
	for i := range s.Items {
		if s.Items[i].ID == id {
			return i
		}
	}
	return -1
}
