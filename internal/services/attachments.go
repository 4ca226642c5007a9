package services

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/url"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"tutorly-backend/internal/apperr"
	"tutorly-backend/internal/models"
)

const (
	// Inline request payloads to Gemini are capped at 20MB.
	maxAttachmentBytes = 20 << 20
	maxExtractedRunes  = 30000

	docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var inlineImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// InlineMedia is raw file content sent to the model next to the prompt.
type InlineMedia struct {
	MIMEType string
	Data     []byte
}

// PreparedAttachment is a learner attachment resolved into what the tutor
// prompt needs: inline media for the model and/or extracted text.
type PreparedAttachment struct {
	Name     string
	MIMEType string
	Inline   *InlineMedia
	Text     string
}

type AttachmentService struct{}

func NewAttachmentService() *AttachmentService {
	return &AttachmentService{}
}

// Prepare decodes a data URI attachment, checks its real content type and
// extracts text from documents.
func (s *AttachmentService) Prepare(a models.Attachment) (*PreparedAttachment, error) {
	const op = "attachment.prepare"

	declared, data, err := parseDataURI(a.DataURI)
	if err != nil {
		return nil, apperr.Validation(op, map[string]string{"attachment": err.Error()})
	}
	if len(data) == 0 {
		return nil, apperr.Validation(op, map[string]string{"attachment": "file is empty"})
	}
	if len(data) > maxAttachmentBytes {
		return nil, apperr.Validation(op, map[string]string{"attachment": "file is larger than 20MB"})
	}

	mimeType := detectMIME(declared, data)
	prepared := &PreparedAttachment{Name: a.Name, MIMEType: mimeType}

	switch {
	case inlineImageTypes[mimeType]:
		prepared.Inline = &InlineMedia{MIMEType: mimeType, Data: data}

	case mimeType == "application/pdf":
		prepared.Inline = &InlineMedia{MIMEType: mimeType, Data: data}
		// Scanned PDFs have no text layer; the model still gets the document inline.
		if text, err := extractPDF(data); err == nil {
			prepared.Text = text
		}

	case mimeType == docxMIME:
		text, err := extractDOCX(data)
		if err != nil {
			return nil, apperr.Validation(op, map[string]string{"attachment": err.Error()})
		}
		prepared.Text = text

	case mimeType == "text/plain":
		text := normalizeExtractedText(string(data))
		if text == "" {
			return nil, apperr.Validation(op, map[string]string{"attachment": "text file is empty"})
		}
		prepared.Text = text

	default:
		return nil, apperr.Validation(op, map[string]string{
			"attachment": fmt.Sprintf("unsupported file type %s", mimeType),
		})
	}

	prepared.Text = truncateRunes(prepared.Text, maxExtractedRunes)
	return prepared, nil
}

// parseDataURI accepts data:[<mediatype>][;base64],<data>.
func parseDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return "", nil, fmt.Errorf("attachment must be a data URI")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI")
	}

	isBase64 := false
	if h, found := strings.CutSuffix(header, ";base64"); found {
		header = h
		isBase64 = true
	}

	mediaType := ""
	if header != "" {
		mt, _, err := mime.ParseMediaType(header)
		if err != nil {
			return "", nil, fmt.Errorf("malformed media type in data URI")
		}
		mediaType = mt
	}

	if !isBase64 {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return "", nil, fmt.Errorf("malformed data URI payload")
		}
		return mediaType, []byte(decoded), nil
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// some encoders drop padding
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return "", nil, fmt.Errorf("data URI payload is not valid base64")
		}
	}
	return mediaType, data, nil
}

// detectMIME prefers the sniffed type; the declared type only breaks ties
// where sniffing cannot tell formats apart.
func detectMIME(declared string, data []byte) string {
	detected := mimetype.Detect(data)

	if declared == docxMIME && detected.Is("application/zip") {
		return docxMIME
	}
	if detected.Is("application/octet-stream") && declared != "" {
		return declared
	}

	mt, _, err := mime.ParseMediaType(detected.String())
	if err != nil {
		return detected.String()
	}
	return mt
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	totalPage := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(content)
		b.WriteString("\n")
	}

	text := normalizeExtractedText(b.String())
	if text == "" {
		return "", fmt.Errorf("no extractable text found in pdf")
	}

	return text, nil
}

func extractDOCX(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx is not a valid archive")
	}

	var documentXML []byte
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", err
		}
		documentXML, err = io.ReadAll(io.LimitReader(rc, maxAttachmentBytes))
		rc.Close()
		if err != nil {
			return "", err
		}
		break
	}

	if len(documentXML) == 0 {
		return "", fmt.Errorf("docx document.xml not found")
	}

	text := normalizeExtractedText(stripDOCXML(documentXML))
	if text == "" {
		return "", fmt.Errorf("no extractable text found in docx")
	}

	return text, nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]+>`)

func stripDOCXML(src []byte) string {
	s := string(src)

	// DOCX paragraphs and line breaks
	s = strings.ReplaceAll(s, "</w:p>", "\n")
	s = strings.ReplaceAll(s, "<w:br/>", "\n")
	s = strings.ReplaceAll(s, "<w:br />", "\n")
	s = strings.ReplaceAll(s, "<w:tab/>", "\t")

	s = xmlTagPattern.ReplaceAllString(s, "")

	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&apos;", "'",
	)
	return replacer.Replace(s)
}

func normalizeExtractedText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	buf := bytes.Buffer{}

	emptyCount := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			emptyCount++
			if emptyCount > 1 {
				continue
			}
			buf.WriteString("\n")
			continue
		}
		emptyCount = 0
		buf.WriteString(trimmed)
		buf.WriteString("\n")
	}

	return strings.TrimSpace(buf.String())
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
