package port

type Tokenizer interface {
	Tokenize(text string) []string

	// Fingerprint identifies the normalization pipeline. Indexes built
	// with one fingerprint must not be queried with another.
	Fingerprint() string
}
