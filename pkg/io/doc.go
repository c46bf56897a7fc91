// Package io reads person records and reads and writes computed layouts as
// JSON.
//
// # Records
//
// A record file is either a bare array or an object with a "people" array:
//
//	[
//	  {"id": 1, "name": "Ada"},
//	  {"id": 2, "father_id": 1, "sibling_order": 0, "photo_url": "https://img.example/2.jpg"},
//	  {"id": 3, "mother_id": 1, "sibling_order": 1, "node_width_hint": 140}
//	]
//
// Fields unknown to the engine are preserved: each record's Payload holds its
// original JSON object as a [encoding/json.RawMessage].
//
// # Layouts
//
// [WriteLayout] stores a positioned layout so that a later command can
// render frames without recomputing it. Payloads are not written; call
// [layout.Result.Reattach] with the original records to restore them.
//
//	res, err := io.ImportLayout("layout.json")
package io
