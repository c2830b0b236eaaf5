// SPDX-License-Identifier: MPL-2.0

// Package cueutil holds the CUE plumbing shared by the configuration and
// registry stores: schema-checked decoding with path-annotated errors, and
// encoding Go values back into formatted CUE source.
//
//	//go:embed registry_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[document](schema, data, "#Registry",
//	    cueutil.WithFilename(path))
package cueutil
