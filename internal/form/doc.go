// Package form implements the edit-session state machine for devices and
// the global SSH settings.
//
//	Closed -> Open(create|modify) -> Submitting -> Closed   (success)
//	                                            -> Open     (failure, error kept)
//
// A create session starts from an empty device template and submits every
// non-empty field once the required fields are filled. A modify session
// starts from a live fetch and submits only the fields whose value changed;
// an unchanged buffer completes without any request.
package form
