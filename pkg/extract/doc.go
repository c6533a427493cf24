// Package extract pulls structured pieces out of raw generator text.
//
// Generator output has no guaranteed format, so every function here is a
// tolerant heuristic that degrades to a usable fallback instead of failing:
//   - [SplitCodeAndTests] separates a program from its test block.
//   - [Code] returns the first fenced block or the trimmed text.
//   - [JSONObject] finds a JSON object in fenced or free-form text.
//   - [Spec] resolves a specification from a "spec" JSON field or plain text.
//
// All functions are pure and safe for concurrent use.
package extract
