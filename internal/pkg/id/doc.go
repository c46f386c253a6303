// Package id generates identifiers: UUIDs for owned resources and
// collision-free placeholder IDs for detail records that arrive without one.
package id
