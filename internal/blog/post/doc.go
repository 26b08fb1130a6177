// Package post defines the blog entities: posts and the comments attached to
// them.
//
// Both entities are create-only. A Post is written once with a generated ID
// and creation time; Comments reference their Post by ID.
package post
