// Package template renders blank lesson documents and checks their structure.
//
// Templates use literal {{KEY}} placeholder tokens. Definitions describe
// which sections a template carries; the built-in set (lesson, incident,
// retrospective) can be extended or overridden from a YAML file.
//
// ValidateTemplate checks structure with the same rule source as the schema
// validator: required sections come from the schema, heading synonyms from
// the rule tables and metadata labels from the lesson field names.
package template
