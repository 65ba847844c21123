// Package upload validates incoming files and hands them to a Store.
//
// Validation is content based: the first bytes of the file are sniffed and
// the detected type, as well as the file name extension, must be on the
// configured allow list. The declared Content-Type of the part is ignored.
package upload
