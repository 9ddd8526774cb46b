// Package variant implements the ordered candidate pool backing every asset
// slot, including selection rules and the bounded retention policy.
package variant
