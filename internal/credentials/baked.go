package credentials

// Build-time-baked credentials, injected at packaging time:
//
//	go build -ldflags "\
//	  -X github.com/harborlane/signup-gateway/internal/credentials.bakedEndpoint=https://xyz.example.co \
//	  -X github.com/harborlane/signup-gateway/internal/credentials.bakedKey=..."
//
// Only the public anon key may ever be baked; the service key must not
// appear here.
var (
	bakedEndpoint string
	bakedKey      string
)

// BakedCandidate returns the build-time-baked pair, empty when the binary
// was built without baked values.
func BakedCandidate() Candidate {
	return Candidate{
		Source:   SourceBaked,
		Endpoint: bakedEndpoint,
		Key:      bakedKey,
	}
}
