package adapter

// QRRenderer turns content into a PNG image.
type QRRenderer interface {
	PNG(content string, size int) ([]byte, error)
}
