package server

import (
	"context"
	"encoding/base64"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/form106-ingest/internal/common"
)

// Export returns the workbook base64-encoded in the xlsx field.
func (s *IngestionServer) Export(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.exporter == nil {
		return nil, common.UnimplementedError("export is not enabled on this server")
	}
	xlsx, err := s.exporter.ExportXLSX(ctx)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "error", err)
		return nil, common.ToStatus(err)
	}
	return structpb.NewStruct(map[string]any{
		"xlsx":  encodeBase64(xlsx),
		"bytes": len(xlsx),
	})
}

// DecodeXLSX extracts the workbook bytes from the xlsx field of an Export response.
func DecodeXLSX(resp *structpb.Struct) ([]byte, error) {
	return base64.StdEncoding.DecodeString(resp.GetFields()["xlsx"].GetStringValue())
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}
