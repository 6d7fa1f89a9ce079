// Package record defines the vendor evaluation record and its column schema.
//
// This package contains type definitions and column bookkeeping only. All
// other internal packages import record; record imports nothing internal.
//
// Key design constraints:
//   - The VendorRecord struct is the single declaration of the column set.
//     Columns() is derived from its `col` tags and is reused for table
//     creation, parameter binding and row scanning.
//   - Every column is free text. Interpreting scores, bands or dates is the
//     caller's business.
//   - vendorName is the primary key: non-empty, case-sensitive, compared
//     byte for byte.
//   - An empty field is stored as NULL and read back as "", never as a
//     missing column.
package record
