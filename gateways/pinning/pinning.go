package pinning

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	jsoniter "github.com/json-iterator/go"

	"whistlevault/whistlevault"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Gateway talks to a Pinata-style pinning service. Uploads either succeed or
// fail the whole operation; there is no retry, chunking or circuit breaking.
type Gateway struct {
	client *http.Client
}

func NewGateway() *Gateway {
	return &Gateway{client: &http.Client{Timeout: time.Second * 30}}
}

type pinResponse struct {
	IpfsHash string `json:"IpfsHash"`
}

// PinJSON uploads a JSON payload and returns its content identifier.
func (g *Gateway) PinJSON(payload interface{}) (string, error) {
	body, err := json.Marshal(map[string]interface{}{"pinataContent": payload})
	if err != nil {
		return "", err
	}
	url := whistlevault.MakeOrGetConfig().GetString("pinningURL") + "/pinning/pinJSONToIPFS"
	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Add("Content-Type", "application/json")
	return g.pin(req, "pinJSON")
}

// PinFile uploads raw file bytes as a multipart body and returns the content
// identifier.
func (g *Gateway) PinFile(data []byte, filename string) (string, error) {
	if filename == "" {
		filename = "document.txt"
	}
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err = part.Write(data); err != nil {
		return "", err
	}
	if err = writer.Close(); err != nil {
		return "", err
	}
	url := whistlevault.MakeOrGetConfig().GetString("pinningURL") + "/pinning/pinFileToIPFS"
	req, err := http.NewRequest("POST", url, body)
	if err != nil {
		return "", err
	}
	req.Header.Add("Content-Type", writer.FormDataContentType())
	return g.pin(req, "pinFile")
}

func (g *Gateway) pin(req *http.Request, op string) (string, error) {
	req.Header.Add("pinata_api_key", whistlevault.MakeOrGetConfig().GetString("pinningAPIKey"))
	req.Header.Add("pinata_secret_api_key", whistlevault.MakeOrGetConfig().GetString("pinningSecret"))
	resp, err := g.client.Do(req)
	if err != nil {
		return "", whistlevault.UploadError{Op: op, Body: err.Error()}
	}
	defer resp.Body.Close()
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", whistlevault.UploadError{Op: op, Status: resp.StatusCode, Body: err.Error()}
	}
	if resp.StatusCode != 200 {
		return "", whistlevault.UploadError{Op: op, Status: resp.StatusCode, Body: string(bodyBytes)}
	}
	var pinned pinResponse
	err = json.Unmarshal(bodyBytes, &pinned)
	if err != nil || pinned.IpfsHash == "" {
		spew.Dump(bodyBytes)
		return "", whistlevault.UploadError{Op: op, Status: resp.StatusCode, Body: "gateway response had no IpfsHash"}
	}
	return pinned.IpfsHash, nil
}

// RetrievalURL builds the public URL for a pinned content identifier.
func (g *Gateway) RetrievalURL(contentID string) string {
	return whistlevault.MakeOrGetConfig().GetString("pinningGateway") + "/" + contentID
}
