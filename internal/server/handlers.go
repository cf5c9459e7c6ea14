package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/iceymoss/newsfeed/internal/repo"
	"github.com/iceymoss/newsfeed/pkg/db/objects"

	"github.com/gin-gonic/gin"
)

const (
	historyLimit  = 20
	maxHistory    = 100
	relatedLimit  = 5
	trendingLimit = 10
	maxTrending   = 50
	trendingDays  = 3
)

type handlers struct {
	Deps
}

func (h *handlers) listTasks(c *gin.Context) {
	success(c, h.Tasks.Jobs())
}

func (h *handlers) runTask(c *gin.Context) {
	if err := h.Tasks.ManualRun(c.Param("name")); err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"message": "Triggered"})
}

// taskLogs 任务最近的执行记录
func (h *handlers) taskLogs(c *gin.Context) {
	if h.History == nil {
		success(c, []objects.SysJobLog{})
		return
	}
	limit := queryLimit(c, historyLimit, maxHistory)
	logs, err := h.History.RecentLogs(c.Request.Context(), c.Param("name"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, logs)
}

func (h *handlers) batches(c *gin.Context) {
	if h.Batches == nil {
		success(c, []repo.FetchBatch{})
		return
	}
	limit := queryLimit(c, historyLimit, maxHistory)
	list, err := h.Batches.RecentBatches(c.Request.Context(), int64(limit))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, list)
}

func queryLimit(c *gin.Context, def, ceiling int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}

func (h *handlers) categories(c *gin.Context) {
	list, err := h.Catalog.ActiveCategories(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	success(c, list)
}

// stats 各状态文章数，外加队列积压
func (h *handlers) stats(c *gin.Context) {
	ctx := c.Request.Context()
	counts, err := h.Catalog.StatusCounts(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	out := gin.H{"articles": counts}
	if h.Queue != nil {
		ready, err := h.Queue.Len(ctx)
		if err != nil {
			fail(c, err)
			return
		}
		delayed, err := h.Queue.Delayed(ctx)
		if err != nil {
			fail(c, err)
			return
		}
		inFlight, err := h.Queue.InFlight(ctx)
		if err != nil {
			fail(c, err)
			return
		}
		out["queue"] = gin.H{"ready": ready, "delayed": delayed, "in_flight": inFlight}
	}
	success(c, out)
}

func pageRequest(c *gin.Context) repo.PageRequest {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	return repo.PageRequest{Page: page, PerPage: perPage}
}

// personalFeed 没有偏好时返回 412，前端引导去选择分类
func (h *handlers) personalFeed(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	prefs, err := h.Users.Preferences(ctx, uid)
	if err != nil {
		fail(c, err)
		return
	}
	if len(prefs) == 0 {
		fail(c, errPreferencesRequired)
		return
	}

	page, err := h.Feeds.PersonalizedFeed(ctx, uid, pageRequest(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, page)
}

func (h *handlers) categoryFeed(c *gin.Context) {
	ctx := c.Request.Context()
	cat, err := h.Catalog.CategoryBySlug(ctx, c.Param("slug"))
	if err != nil {
		fail(c, err)
		return
	}
	page, err := h.Feeds.CategoryFeed(ctx, cat.ID, pageRequest(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"category": cat, "articles": page})
}

func (h *handlers) savedFeed(c *gin.Context) {
	page, err := h.Feeds.SavedFeed(c.Request.Context(), userID(c), pageRequest(c))
	if err != nil {
		fail(c, err)
		return
	}
	success(c, page)
}

func (h *handlers) trending(c *gin.Context) {
	limit := queryLimit(c, trendingLimit, maxTrending)
	since := h.Now().AddDate(0, 0, -trendingDays)
	list, err := h.Feeds.Trending(c.Request.Context(), since, limit)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, list)
}

func articleID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid article id")
		return 0, false
	}
	return id, true
}

type articleView struct {
	Article *objects.Article  `json:"article"`
	IsRead  bool              `json:"is_read"`
	IsSaved bool              `json:"is_saved"`
	Related []objects.Article `json:"related"`
}

func (h *handlers) article(c *gin.Context) {
	id, valid := articleID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	uid := userID(c)

	a, err := h.Feeds.ArticleDetail(ctx, id)
	if err != nil {
		fail(c, err)
		return
	}
	view := articleView{Article: a}
	if view.IsRead, err = h.Users.HasRead(ctx, uid, id); err != nil {
		fail(c, err)
		return
	}
	if view.IsSaved, err = h.Users.HasSaved(ctx, uid, id); err != nil {
		fail(c, err)
		return
	}
	if view.Related, err = h.Feeds.Related(ctx, a, relatedLimit); err != nil {
		fail(c, err)
		return
	}
	success(c, view)
}

type readRequest struct {
	TimeSpent *int `json:"time_spent"`
}

func (h *handlers) markRead(c *gin.Context) {
	id, valid := articleID(c)
	if !valid {
		return
	}
	var req readRequest
	// 请求体可选；chunked 请求的 ContentLength 是 -1，不能靠它判断
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, "invalid request body")
			return
		}
	}
	spent := 0
	if req.TimeSpent != nil {
		if *req.TimeSpent < 0 {
			badRequest(c, "time_spent must not be negative")
			return
		}
		spent = *req.TimeSpent
	}

	ctx := c.Request.Context()
	if _, err := h.Catalog.GetArticle(ctx, id); err != nil {
		fail(c, err)
		return
	}
	if err := h.Users.MarkRead(ctx, userID(c), id, &spent, h.Now()); err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"success": true})
}

func (h *handlers) toggleSave(c *gin.Context) {
	id, valid := articleID(c)
	if !valid {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Catalog.GetArticle(ctx, id); err != nil {
		fail(c, err)
		return
	}
	saved, err := h.Users.ToggleSave(ctx, userID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"saved": saved})
}

func (h *handlers) preferences(c *gin.Context) {
	ctx := c.Request.Context()
	cats, err := h.Catalog.ActiveCategories(ctx)
	if err != nil {
		fail(c, err)
		return
	}
	selected, err := h.Users.Preferences(ctx, userID(c))
	if err != nil {
		fail(c, err)
		return
	}
	if selected == nil {
		selected = []uint64{}
	}
	success(c, gin.H{"categories": cats, "selected": selected})
}

type preferencesRequest struct {
	Categories []uint64 `json:"categories" binding:"required,min=1"`
}

// updatePreferences 整体替换；每个 id 都必须是已存在的分类
func (h *handlers) updatePreferences(c *gin.Context) {
	var req preferencesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "categories must be a non-empty list of category ids")
		return
	}

	ctx := c.Request.Context()
	unique := dedupe(req.Categories)
	found, err := h.Catalog.CategoriesByIDs(ctx, unique)
	if err != nil {
		fail(c, err)
		return
	}
	if len(found) != len(unique) {
		badRequest(c, "unknown category id")
		return
	}

	if err := h.Users.ReplacePreferences(ctx, userID(c), unique); err != nil {
		fail(c, err)
		return
	}
	success(c, gin.H{"message": "Your preferences have been updated!", "selected": unique})
}

func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
