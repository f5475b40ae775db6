package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sagarrai21802/Dobbie/internal/auth"
)

// StatusKind enumerates the publish states observable by the UI.
type StatusKind int

const (
	StatusIdle StatusKind = iota
	StatusPosting
	StatusSuccess
	StatusError
)

func (k StatusKind) String() string {
	switch k {
	case StatusIdle:
		return "idle"
	case StatusPosting:
		return "posting"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the observable publish state. Message is set only for
// StatusError.
type Status struct {
	Kind    StatusKind
	Message string
}

// CredentialSource supplies the current credential, if any.
type CredentialSource interface {
	Load() (auth.Credential, bool)
}

// Publisher assembles and submits UGC posts, running the media upload
// pipeline first when an image is attached. It owns the Status value: the
// UI observes it but never mutates it.
type Publisher struct {
	client *Client
	creds  CredentialSource

	mu     sync.Mutex
	busy   bool
	status Status
}

// NewPublisher creates a publisher reading credentials from creds.
func NewPublisher(client *Client, creds CredentialSource) *Publisher {
	return &Publisher{client: client, creds: creds}
}

// Status returns the current publish status.
func (p *Publisher) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Publish submits text (and an optional image) as a LinkedIn post. It never
// returns an error: outcomes are reported through Status, which moves
// Posting → Success | Error and stays there until the next invocation.
// Only one publish may be in flight; a concurrent call is rejected, reported
// by a false return, and leaves the in-flight publish's status untouched.
// An accepted call returns true whatever its outcome.
func (p *Publisher) Publish(ctx context.Context, text string, image []byte) bool {
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return false
	}
	p.busy = true
	p.status = Status{Kind: StatusPosting}
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.busy = false
		p.mu.Unlock()
	}()

	cred, ok := p.creds.Load()
	if !ok {
		p.setError("not authenticated")
		return true
	}

	var asset string
	if len(image) > 0 {
		a, err := p.client.UploadImage(ctx, cred.AccessToken, cred.AuthorURN, image)
		if err != nil {
			p.setError(err.Error())
			return true
		}
		asset = a
	}

	body := buildPostBody(cred.AuthorURN, text, asset)
	resp, err := p.client.postJSON(ctx, p.client.baseURL+"/v2/ugcPosts", cred.AccessToken, body)
	if err != nil {
		p.setError(err.Error())
		return true
	}
	drain(resp)

	if resp.StatusCode == http.StatusCreated {
		p.setStatus(Status{Kind: StatusSuccess})
		return true
	}
	p.setError(fmt.Sprintf("failed to post (HTTP %d)", resp.StatusCode))
	return true
}

func (p *Publisher) setError(msg string) {
	p.setStatus(Status{Kind: StatusError, Message: msg})
}

func (p *Publisher) setStatus(s Status) {
	p.mu.Lock()
	p.status = s
	p.mu.Unlock()
}

// UGC post body types. The media array is omitted entirely for text-only
// posts.

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

type shareContent struct {
	ShareCommentary    commentary   `json:"shareCommentary"`
	ShareMediaCategory string       `json:"shareMediaCategory"`
	Media              []mediaEntry `json:"media,omitempty"`
}

type commentary struct {
	Text string `json:"text"`
}

type mediaEntry struct {
	Status string `json:"status"`
	Media  string `json:"media"`
}

func buildPostBody(authorURN, text, asset string) ugcPost {
	content := shareContent{
		ShareCommentary:    commentary{Text: text},
		ShareMediaCategory: "NONE",
	}
	if asset != "" {
		content.ShareMediaCategory = "IMAGE"
		content.Media = []mediaEntry{{Status: "READY", Media: asset}}
	}

	return ugcPost{
		Author:          authorURN,
		LifecycleState:  "PUBLISHED",
		SpecificContent: map[string]shareContent{"com.linkedin.ugc.ShareContent": content},
		Visibility:      map[string]string{"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC"},
	}
}
