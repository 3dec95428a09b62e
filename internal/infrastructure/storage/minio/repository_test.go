package minio

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/Massing-Sim/internal/config"
	pkgerrors "github.com/turtacn/Massing-Sim/pkg/errors"
)

type recordedArchive struct{ errs []error }

func (r *recordedArchive) RecordArchive(err error) { r.errs = append(r.errs, err) }

type RepositoryTestSuite struct {
	suite.Suite
	ctx     context.Context
	api     *MockMinIOAPI
	client  *Client
	rec     *recordedArchive
	repo    *ArtifactRepository
	pngHead []byte
}

func (s *RepositoryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.api = new(MockMinIOAPI)
	s.client = NewClientFrom(s.api, config.MinIOConfig{Bucket: "msim-artifacts", PresignExpiry: 15 * time.Minute}, nil)
	s.rec = &recordedArchive{}
	s.repo = NewArtifactRepository(s.client, nil, s.rec)
	s.pngHead = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
}

func (s *RepositoryTestSuite) TestPut_ExplicitContentType() {
	body := bytes.NewReader(s.pngHead)
	s.api.On("PutObject", s.ctx, "msim-artifacts", "heatmaps/wind/r1.png", body, int64(len(s.pngHead)),
		minio.PutObjectOptions{ContentType: "image/png"}).
		Return(minio.UploadInfo{Key: "heatmaps/wind/r1.png", Size: int64(len(s.pngHead))}, nil)

	err := s.repo.Put(s.ctx, "heatmaps/wind/r1.png", body, int64(len(s.pngHead)), "image/png")
	s.Require().NoError(err)
	s.api.AssertExpectations(s.T())
	s.Equal([]error{nil}, s.rec.errs)
}

func (s *RepositoryTestSuite) TestPut_SniffsContentType() {
	s.api.On("PutObject", s.ctx, "msim-artifacts", "k.png", mock.Anything, int64(len(s.pngHead)),
		mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == "image/png" })).
		Return(minio.UploadInfo{}, nil)

	s.Require().NoError(s.repo.Put(s.ctx, "k.png", bytes.NewReader(s.pngHead), int64(len(s.pngHead)), ""))
	s.api.AssertExpectations(s.T())
}

func (s *RepositoryTestSuite) TestPut_Failure() {
	s.api.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(minio.UploadInfo{}, errors.New("connection reset"))

	err := s.repo.Put(s.ctx, "k.png", bytes.NewReader(s.pngHead), 4, "image/png")
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))
	s.Contains(err.Error(), "connection reset")
	s.Require().Len(s.rec.errs, 1)
	s.Error(s.rec.errs[0])
}

func (s *RepositoryTestSuite) TestPut_EmptyKey() {
	err := s.repo.Put(s.ctx, " ", bytes.NewReader(nil), 0, "")
	s.Equal(ErrInvalidKey, err)
	s.api.AssertNotCalled(s.T(), "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *RepositoryTestSuite) TestPut_Closed() {
	s.Require().NoError(s.client.Close())
	err := s.repo.Put(s.ctx, "k", bytes.NewReader(nil), 0, "image/png")
	s.Equal(ErrClientClosed, err)
}

func (s *RepositoryTestSuite) TestStatAndExists() {
	mod := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.api.On("StatObject", s.ctx, "msim-artifacts", "present", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{Key: "present", Size: 10, ContentType: "image/png", LastModified: mod}, nil)
	s.api.On("StatObject", s.ctx, "msim-artifacts", "absent", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"})
	s.api.On("StatObject", s.ctx, "msim-artifacts", "broken", minio.StatObjectOptions{}).
		Return(minio.ObjectInfo{}, errors.New("boom"))

	info, err := s.repo.Stat(s.ctx, "present")
	s.Require().NoError(err)
	s.Equal(int64(10), info.Size)
	s.Equal(mod, info.LastModified)

	_, err = s.repo.Stat(s.ctx, "absent")
	s.True(pkgerrors.IsNotFound(err))

	ok, err := s.repo.Exists(s.ctx, "present")
	s.NoError(err)
	s.True(ok)

	ok, err = s.repo.Exists(s.ctx, "absent")
	s.NoError(err)
	s.False(ok)

	ok, err = s.repo.Exists(s.ctx, "broken")
	s.Error(err)
	s.False(ok)
}

func (s *RepositoryTestSuite) TestDelete() {
	s.api.On("RemoveObject", s.ctx, "msim-artifacts", "k", minio.RemoveObjectOptions{}).Return(nil).Once()
	s.api.On("RemoveObject", s.ctx, "msim-artifacts", "k", minio.RemoveObjectOptions{}).Return(errors.New("x")).Once()

	s.NoError(s.repo.Delete(s.ctx, "k"))
	s.True(pkgerrors.IsCode(s.repo.Delete(s.ctx, "k"), pkgerrors.ErrCodeStorageError))
}

func (s *RepositoryTestSuite) TestPresignedURL() {
	u, _ := url.Parse("http://minio:9000/msim-artifacts/k?X-Amz-Signature=abc")
	s.api.On("PresignedGetObject", s.ctx, "msim-artifacts", "k", 15*time.Minute, url.Values(nil)).Return(u, nil)
	s.api.On("PresignedGetObject", s.ctx, "msim-artifacts", "k", time.Minute, url.Values(nil)).Return(nil, errors.New("clock skew"))

	got, err := s.repo.PresignedURL(s.ctx, "k", 0)
	s.Require().NoError(err)
	s.Equal(u.String(), got)

	_, err = s.repo.PresignedURL(s.ctx, "k", time.Minute)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeStorageError))

	_, err = s.repo.PresignedURL(s.ctx, "", 0)
	s.Equal(ErrInvalidKey, err)
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

//Personal.AI order the ending
