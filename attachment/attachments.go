package attachment

import (
	"docflow/bizerror"
	"docflow/client/s3"
	"docflow/domain"
	"docflow/idgen"
	"docflow/session"
	"fmt"
	"io"
	"mime"
	"path"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "attachments/"

var (
	// MaxAttachmentSize bounds one upload, in bytes
	MaxAttachmentSize int64 = 20 << 20

	attachmentIdWorker = idgen.NewWorker()

	UploadAttachmentFunc = UploadAttachment
	OpenAttachmentFunc   = OpenAttachment
)

// UploadAttachment stores the blob and returns the metadata a document creation refers to.
func UploadAttachment(name string, size int64, contentType string, r io.Reader, s *session.Session) (*domain.FileMetadata, error) {
	if size > MaxAttachmentSize {
		verr := &bizerror.ValidationError{}
		verr.Add("file", "max", fmt.Sprintf("file must be at most %d bytes", MaxAttachmentSize))
		return nil, verr
	}
	name = path.Base(name)
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := keyPrefix + idgen.NextID(attachmentIdWorker).String()
	if err := s3.PutObjectFunc(s.Ctx(), key, r, oss.ContentType(contentType),
		oss.ContentDisposition(mime.FormatMediaType("attachment", map[string]string{"filename": name}))); err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"key": key, "name": name, "size": size, "uploader": s.Identity.Name}).Info("attachment stored")
	return &domain.FileMetadata{Key: key, Name: name, Size: size, ContentType: contentType}, nil
}

// OpenAttachment streams a stored blob, the caller closes the reader.
func OpenAttachment(id types.ID, s *session.Session) (io.ReadCloser, error) {
	r, err := s3.GetObjectFunc(s.Ctx(), keyPrefix+id.String())
	if err != nil {
		if s3.IsNoSuchKey(err) {
			return nil, fmt.Errorf("%w: attachment %s", bizerror.ErrNotFound, id)
		}
		return nil, err
	}
	return r, nil
}
