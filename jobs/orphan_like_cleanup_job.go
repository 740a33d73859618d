// File: /jobs/orphan_like_cleanup_job.go
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
)

const cleanupTimeout = 5 * time.Minute

// OrphanLikeCleanupJob removes like records whose post is gone from the
// post store. Snapshots of posts that still exist are left untouched.
type OrphanLikeCleanupJob struct {
	posts    repositories.PostRepository
	likes    repositories.LikeRepository
	schedule string
	quartz   *cron.Cron
}

func NewOrphanLikeCleanupJob(posts repositories.PostRepository, likes repositories.LikeRepository, schedule string) *OrphanLikeCleanupJob {
	return &OrphanLikeCleanupJob{
		posts:    posts,
		likes:    likes,
		schedule: schedule,
		quartz:   cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger))),
	}
}

// Start registers the job on its schedule and starts the scheduler
func (j *OrphanLikeCleanupJob) Start() error {
	if _, err := j.quartz.AddFunc(j.schedule, j.cleanup); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", j.schedule, err)
	}
	j.quartz.Start()
	log.Info().Str("schedule", j.schedule).Msg("Orphan like cleanup job started.")
	return nil
}

// Stop halts the scheduler and waits for a running cleanup to finish
func (j *OrphanLikeCleanupJob) Stop() {
	<-j.quartz.Stop().Done()
	log.Info().Msg("Orphan like cleanup job stopped.")
}

func (j *OrphanLikeCleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	removed, err := j.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error during orphan like cleanup.")
		return
	}
	log.Info().Int("removed", removed).Msg("Orphan like cleanup completed.")
}

// Run performs one cleanup pass and returns the number of likes removed.
// A delete failure is logged and the pass continues with the next like.
func (j *OrphanLikeCleanupJob) Run(ctx context.Context) (int, error) {
	posts, err := j.posts.ListPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list posts: %w", err)
	}
	likes, err := j.likes.ListAllLikes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list likes: %w", err)
	}

	existing := lo.SliceToMap(posts, func(post models.Post) (string, struct{}) {
		return post.ID, struct{}{}
	})
	orphans := lo.Reject(likes, func(like models.LikeRecord, _ int) bool {
		_, ok := existing[like.PostID]
		return ok
	})

	removed := 0
	for _, like := range orphans {
		if err := j.likes.DeleteLike(ctx, like.UserID, like.PostID); err != nil {
			log.Warn().Err(err).
				Str("user_id", like.UserID).
				Str("post_id", like.PostID).
				Msg("Failed to remove orphaned like.")
			continue
		}
		removed++
	}
	return removed, nil
}
