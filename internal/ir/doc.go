// Package ir provides the canonical domain types shared by every huntql package.
//
// This package contains type definitions, canonical JSON encoding and
// content hashing only. All other internal packages import ir; ir imports
// nothing internal.
//
// Key design constraints:
//   - NO float types in literal values - use int64 for numbers
//   - Schema versions are content hashes, never timestamps
//   - All JSON tags use snake_case
//   - Datasets keep their fields in declaration order
package ir
