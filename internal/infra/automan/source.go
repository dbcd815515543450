package automan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tier4/automan-annotation-archiver/internal/domain/entity"
	"go.uber.org/zap"
)

func (c *Client) GetFrameCount(ctx context.Context, projectID, annotationID int64) (int, error) {
	var annotation struct {
		DatasetID *int64 `json:"dataset_id"`
	}
	path := fmt.Sprintf("/projects/%d/annotations/%d/", projectID, annotationID)
	if err := c.getJSON(ctx, path, &annotation); err != nil {
		return 0, err
	}
	if annotation.DatasetID == nil {
		return 0, fmt.Errorf("%w: %s: missing dataset_id", entity.ErrUpstream, path)
	}

	var dataset struct {
		FrameCount *int `json:"frame_count"`
	}
	path = fmt.Sprintf("/projects/%d/datasets/%d/", projectID, *annotation.DatasetID)
	if err := c.getJSON(ctx, path, &dataset); err != nil {
		return 0, err
	}
	if dataset.FrameCount == nil || *dataset.FrameCount < 0 {
		return 0, fmt.Errorf("%w: %s: missing frame_count", entity.ErrUpstream, path)
	}
	return *dataset.FrameCount, nil
}

func (c *Client) GetClassColors(ctx context.Context, projectID int64) (entity.ClassColors, error) {
	var project struct {
		Klassset *struct {
			Records []struct {
				Name   string          `json:"name"`
				Config json.RawMessage `json:"config"`
			} `json:"records"`
		} `json:"klassset"`
	}
	path := fmt.Sprintf("/projects/%d/", projectID)
	if err := c.getJSON(ctx, path, &project); err != nil {
		return nil, err
	}
	if project.Klassset == nil {
		return nil, fmt.Errorf("%w: %s: missing klassset", entity.ErrUpstream, path)
	}

	colors := make(entity.ClassColors, len(project.Klassset.Records))
	for _, record := range project.Klassset.Records {
		cfg, err := decodeClassConfig(record.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: class %q config: %v", entity.ErrUpstream, path, record.Name, err)
		}
		if cfg.Color == "" {
			c.logger.Debug("class has no color configured", zap.String("class", record.Name))
			continue
		}
		colors[record.Name] = cfg.Color
	}
	return colors, nil
}

type classConfig struct {
	Color string `json:"color"`
}

// decodeClassConfig accepts the config either as a JSON encoded string or as an object.
func decodeClassConfig(raw json.RawMessage) (classConfig, error) {
	var cfg classConfig
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return cfg, nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return cfg, err
		}
		raw = []byte(inner)
	}
	err := json.Unmarshal(raw, &cfg)
	return cfg, err
}

func (c *Client) GetCandidates(ctx context.Context, projectID, originalID int64) ([]entity.Candidate, error) {
	var res struct {
		Records []struct {
			CandidateID int64  `json:"candidate_id"`
			DataType    string `json:"data_type"`
		} `json:"records"`
	}
	path := fmt.Sprintf("/projects/%d/originals/%d/candidates/", projectID, originalID)
	if err := c.getJSON(ctx, path, &res); err != nil {
		return nil, err
	}

	candidates := make([]entity.Candidate, 0, len(res.Records))
	for _, record := range res.Records {
		candidates = append(candidates, entity.Candidate{
			ID:       record.CandidateID,
			DataType: entity.ParseDataType(record.DataType),
		})
	}
	return candidates, nil
}

func (c *Client) GetAnnotation(ctx context.Context, projectID, annotationID int64, frame int) (*entity.AnnotationRecordSet, error) {
	var raw json.RawMessage
	path := fmt.Sprintf("/projects/%d/annotations/%d/frames/%d/objects/", projectID, annotationID, frame)
	if err := c.getJSON(ctx, path, &raw); err != nil {
		return nil, err
	}

	var head struct {
		Count *int `json:"count"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", entity.ErrUpstream, path, err)
	}
	if head.Count == nil {
		return nil, fmt.Errorf("%w: %s: missing count", entity.ErrUpstream, path)
	}

	// The whole payload is kept; members the archiver does not interpret ride along in Extra.
	set := &entity.AnnotationRecordSet{}
	if err := json.Unmarshal(raw, set); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", entity.ErrUpstream, path, err)
	}
	if set.Records == nil {
		set.Records = []entity.AnnotationRecord{}
	}
	return set, nil
}

func (c *Client) GetFrameDetail(ctx context.Context, projectID, datasetID, candidateID int64, frame int) (*entity.FrameDetail, error) {
	var detail entity.FrameDetail
	path := fmt.Sprintf("/projects/%d/datasets/%d/candidates/%d/frames/%d/", projectID, datasetID, candidateID, frame)
	if err := c.getJSON(ctx, path, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) GetLocalizationTrack(ctx context.Context, projectID, datasetID int64) entity.LocalizationTrack {
	log := c.logger.With(zap.Int64("project_id", projectID), zap.Int64("dataset_id", datasetID))

	var ref struct {
		FileLink string `json:"file_link"`
	}
	path := fmt.Sprintf("/projects/%d/datasets/%d/localization/", projectID, datasetID)
	if err := c.getJSON(ctx, path, &ref); err != nil {
		log.Warn("localization unavailable", zap.Error(err))
		return nil
	}
	if ref.FileLink == "" {
		log.Warn("localization unavailable", zap.String("reason", "empty file_link"))
		return nil
	}

	body, err := c.fetch(ctx, ref.FileLink)
	if err != nil {
		log.Warn("localization download failed", zap.Error(err))
		return nil
	}

	var track entity.LocalizationTrack
	if err := json.Unmarshal(body, &track); err != nil {
		log.Warn("localization is not a pose sequence", zap.Error(err))
		return nil
	}
	log.Info("localization loaded", zap.Int("poses", len(track)))
	return track
}

func (c *Client) DownloadImage(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, url)
}
