// Package request defines GameRequest, the immutable value every producer
// hands to the arbiter, together with its two wire encodings: the
// "system:id_type:identifier:source" pipe line and the JSON command object.
//
// IDType is a closed enum; anything outside serial, title, uuid, hash,
// barcode and custom is rejected with ErrMalformed. JSON command errors keep
// the exact "Invalid JSON" and "Unknown command: <cmd>" texts clients expect.
package request
