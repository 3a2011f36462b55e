// Package model defines the domain types used across the application.
package model

import "time"

// FeedItem is one candidate or persisted syndication entry.
//
// Title, Link and PublishedAt are required; everything else may be empty.
type FeedItem struct {
	Title       string
	Link        string
	Description string
	PublishedAt string
	GUID        string
	Source      string
	Categories  []string
}

// Post is a manually submitted entry waiting to be collected into the feed.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Description string    `json:"description"`
	Categories  []string  `json:"categories,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// HTMLMode selects how markup inside a description is treated.
type HTMLMode string

// Supported HTML modes. Strip and Escape are mutually exclusive;
// Preserve keeps the markup as rich content inside CDATA.
const (
	HTMLStrip    HTMLMode = "strip"
	HTMLEscape   HTMLMode = "escape"
	HTMLPreserve HTMLMode = "preserve"
)

// InsertMode selects where rendered items are spliced relative to the anchor.
type InsertMode string

// Supported insertion styles.
const (
	// InsertAfter produces head + anchor + items + tail.
	InsertAfter InsertMode = "after"
	// InsertBefore produces head + items + anchor + tail, for anchors that are a closing boundary.
	InsertBefore InsertMode = "before"
)
