// Code generated by ent, DO NOT EDIT.

package ent

import (
	"github.com/slatehq/slate/internal/ent/event"
	"github.com/slatehq/slate/internal/ent/schema"
)

// The init function reads all schema descriptors with runtime code
// (default values, validators, hooks and policies) and stitches it
// to their package variables.
func init() {
	eventFields := schema.Event{}.Fields()
	_ = eventFields
	// eventDescEventID is the schema descriptor for event_id field.
	eventDescEventID := eventFields[0].Descriptor()
	// event.EventIDValidator is a validator for the "event_id" field. It is called by the builders before save.
	event.EventIDValidator = eventDescEventID.Validators[0].(func(string) error)
	// eventDescWorkspaceID is the schema descriptor for workspace_id field.
	eventDescWorkspaceID := eventFields[1].Descriptor()
	// event.WorkspaceIDValidator is a validator for the "workspace_id" field. It is called by the builders before save.
	event.WorkspaceIDValidator = eventDescWorkspaceID.Validators[0].(func(string) error)
	// eventDescVersion is the schema descriptor for version field.
	eventDescVersion := eventFields[2].Descriptor()
	// event.VersionValidator is a validator for the "version" field. It is called by the builders before save.
	event.VersionValidator = eventDescVersion.Validators[0].(func(int64) error)
	// eventDescType is the schema descriptor for type field.
	eventDescType := eventFields[3].Descriptor()
	// event.TypeValidator is a validator for the "type" field. It is called by the builders before save.
	event.TypeValidator = eventDescType.Validators[0].(func(string) error)
	// eventDescTsMs is the schema descriptor for ts_ms field.
	eventDescTsMs := eventFields[5].Descriptor()
	// event.TsMsValidator is a validator for the "ts_ms" field. It is called by the builders before save.
	event.TsMsValidator = eventDescTsMs.Validators[0].(func(int64) error)
	// eventDescAuthorID is the schema descriptor for author_id field.
	eventDescAuthorID := eventFields[6].Descriptor()
	// event.AuthorIDValidator is a validator for the "author_id" field. It is called by the builders before save.
	event.AuthorIDValidator = eventDescAuthorID.Validators[0].(func(string) error)
}
