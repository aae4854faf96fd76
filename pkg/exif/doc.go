// Package exif reads and writes the EXIF APP1 segment of JPEG files.
//
// Parse and ParseSegment decode the TIFF structure into a Directory, Serialize
// encodes a Directory back into an APP1 payload and Insert splices that
// payload into a JPEG without touching any other byte of the stream.
package exif
