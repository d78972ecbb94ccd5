// Package main 是应用程序的入口点。
package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"fastener-smart-go/internal/catalog"
	"fastener-smart-go/internal/config"
	"fastener-smart-go/internal/handler"
	"fastener-smart-go/internal/middleware"
	"fastener-smart-go/internal/pipeline"
	"fastener-smart-go/internal/repository"
	"fastener-smart-go/internal/service"
	"fastener-smart-go/pkg/database"
	"fastener-smart-go/pkg/embedding"
	"fastener-smart-go/pkg/es"
	"fastener-smart-go/pkg/kafka"
	"fastener-smart-go/pkg/llm"
	"fastener-smart-go/pkg/log"
	"fastener-smart-go/pkg/storage"
	"fastener-smart-go/pkg/tika"
	"fastener-smart-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	err := es.InitES(cfg.Elasticsearch)
	if err != nil {
		log.Errorf("es 初始化失败 %s", err)
		return
	}
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	orgTagRepo := repository.NewOrgTagRepository(database.DB)
	uploadRepo := repository.NewUploadRepository(database.DB, database.RDB)
	conversationRepo := repository.NewConversationRepository(database.RDB)
	chunkRepo := repository.NewCatalogChunkRepository(database.DB)
	quoteRepo := repository.NewQuoteRepository(database.DB)

	// 5. 初始化目录智能组件：标准知识库、元数据提取器、查询分类器与重排器
	standardsKB := catalog.DefaultStandardsKB()
	extractor := catalog.NewExtractor(standardsKB)
	classifier := catalog.NewClassifier(standardsKB)
	reranker := catalog.NewRerankerWithWeights(standardsKB, catalogWeights(cfg.Catalog))

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	userService := service.NewUserService(userRepository, orgTagRepo, jwtManager)
	adminService := service.NewAdminService(orgTagRepo, userRepository, conversationRepo, chunkRepo, extractor, classifier)
	uploadService := service.NewUploadService(uploadRepo, userRepository, cfg.MinIO)
	documentService := service.NewDocumentService(uploadRepo, userRepository, orgTagRepo, cfg.MinIO, cfg.Elasticsearch, tikaClient)
	searchService := service.NewSearchService(embeddingClient, es.ESClient, cfg.Elasticsearch, classifier, reranker, userService, uploadRepo)
	conversationService := service.NewConversationService(conversationRepo)
	chatService := service.NewChatService(searchService, llmClient, conversationRepo)
	quoteService := service.NewQuoteService(quoteRepo, chunkRepo)

	// 7. 初始化文件处理管道 (Processor)
	processor := pipeline.NewProcessor(
		tikaClient,
		embeddingClient,
		extractor,
		cfg.Elasticsearch,
		cfg.MinIO,
		cfg.Embedding,
		uploadRepo,
		chunkRepo,
	)

	// 8. 启动后台 Kafka 消费者
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 8.1 初始化导入 initcatalog 目录：模拟真实上传 + 合并（全员可见，归属 admin），已导入则跳过
	initCtx, cancelInit := context.WithCancel(context.Background())
	defer cancelInit()
	go initSeedFiles(initCtx, "initcatalog", userRepository, uploadService)

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 10. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由 (公开访问)
			users.POST("/register", handler.NewUserHandler(userService).Register)
			users.POST("/login", handler.NewUserHandler(userService).Login)

			// 需要认证的路由 (仅限登录用户访问)
			authed := users.Group("/")
			authed.Use(middleware.AuthMiddleware(jwtManager, userService))
			{
				authed.GET("/me", handler.NewUserHandler(userService).GetProfile)
				authed.POST("/logout", handler.NewUserHandler(userService).Logout)
				authed.PUT("/primary-org", handler.NewUserHandler(userService).SetPrimaryOrg)
				authed.GET("/org-tags", handler.NewUserHandler(userService).GetUserOrgTags)
			}
		}

		// Upload 路由组，需要认证
		upload := apiV1.Group("/upload")
		upload.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			upload.POST("/check", handler.NewUploadHandler(uploadService).CheckFile)
			upload.POST("/chunk", handler.NewUploadHandler(uploadService).UploadChunk)
			upload.POST("/merge", handler.NewUploadHandler(uploadService).MergeChunks)
			upload.GET("/status", handler.NewUploadHandler(uploadService).GetUploadStatus)
			upload.GET("/supported-types", handler.NewUploadHandler(uploadService).GetSupportedFileTypes)
			upload.POST("/fast-upload", handler.NewUploadHandler(uploadService).FastUpload)
		}

		// Document 路由组，需要认证
		documents := apiV1.Group("/documents")
		documents.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			documents.GET("/accessible", handler.NewDocumentHandler(documentService, userService).ListAccessibleFiles)
			documents.GET("/uploads", handler.NewDocumentHandler(documentService, userService).ListUploadedFiles)
			documents.DELETE("/:fileMd5", handler.NewDocumentHandler(documentService, userService).DeleteDocument)
			documents.GET("/download", handler.NewDocumentHandler(documentService, userService).GenerateDownloadURL) // Path param -> Query param
			documents.GET("/preview", handler.NewDocumentHandler(documentService, userService).PreviewFile)
		}

		// Search 路由组
		search := apiV1.Group("/search")
		search.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			search.GET("/hybrid", handler.NewSearchHandler(searchService).HybridSearch)
		}

		// Quote 路由组，需要认证
		quotes := apiV1.Group("/quotes")
		quotes.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			quotes.POST("", handler.NewQuoteHandler(quoteService).CreateQuote)
			quotes.GET("/mine", handler.NewQuoteHandler(quoteService).ListMyQuotes)
			quotes.POST("/:id/cancel", handler.NewQuoteHandler(quoteService).CancelQuote)
		}

		// Conversation 路由组
		conversation := apiV1.Group("/users/conversation")
		conversation.Use(middleware.AuthMiddleware(jwtManager, userService))
		{
			conversation.GET("", handler.NewConversationHandler(conversationService).GetConversations)
		}

		// Chat 路由 (WebSocket)
		chatGroup := apiV1.Group("/chat")
		{
			chatGroup.GET("/websocket-token", handler.NewChatHandler(chatService, userService, jwtManager).GetWebsocketStopToken)
		}
		r.GET("/chat/:token", handler.NewChatHandler(chatService, userService, jwtManager).Handle)

		admin := apiV1.Group("/admin")
		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin.Use(middleware.AuthMiddleware(jwtManager, userService), middleware.AdminAuthMiddleware())
		{
			// 管理员用户管理相关路由
			admin.GET("/users/list", handler.NewAdminHandler(adminService, userService).ListUsers)
			admin.PUT("/users/:userId/org-tags", handler.NewAdminHandler(adminService, userService).AssignOrgTagsToUser)
			admin.GET("/conversation", handler.NewAdminHandler(adminService, userService).GetAllConversations)

			// 管理员组织标签管理相关路由
			orgTags := admin.Group("/org-tags")
			{
				orgTags.POST("", handler.NewAdminHandler(adminService, userService).CreateOrganizationTag)
				orgTags.GET("", handler.NewAdminHandler(adminService, userService).ListOrganizationTags)
				orgTags.GET("/tree", handler.NewAdminHandler(adminService, userService).GetOrganizationTagTree)
				orgTags.PUT("/:id", handler.NewAdminHandler(adminService, userService).UpdateOrganizationTag)
				orgTags.DELETE("/:id", handler.NewAdminHandler(adminService, userService).DeleteOrganizationTag)
			}

			// 管理员目录元数据核查相关路由
			catalogAdmin := admin.Group("/catalog")
			{
				catalogAdmin.POST("/debug-extract", handler.NewAdminHandler(adminService, userService).DebugExtractMetadata)
				catalogAdmin.GET("/stats", handler.NewAdminHandler(adminService, userService).GetCatalogStats)
				catalogAdmin.GET("/chunks", handler.NewAdminHandler(adminService, userService).FindChunksByStandard)
			}

			// 管理员询价处理相关路由
			adminQuotes := admin.Group("/quotes")
			{
				adminQuotes.GET("/open", handler.NewQuoteHandler(quoteService).ListOpenQuotes)
				adminQuotes.POST("/:id/answer", handler.NewQuoteHandler(quoteService).AnswerQuote)
			}
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// 在优雅停机逻辑中，我们不需要手动关闭 Kafka 消费者，
	// 因为 StartConsumer 是一个循环，会在程序退出时自然结束。
	// 如果需要更精细的控制，可以在 StartConsumer 中实现一个关闭通道。
	log.Info("服务已优雅关闭")
}

// catalogWeights 把配置文件中的重排权重转换为领域权重，未配置的项
// 落回内置默认值。
func catalogWeights(cfg config.CatalogConfig) catalog.Weights {
	w := catalog.DefaultWeights()
	if cfg.VectorWeight > 0 {
		w.VectorWeight = cfg.VectorWeight
	}
	if cfg.KeywordWeight > 0 {
		w.KeywordWeight = cfg.KeywordWeight
	}
	if cfg.ExactMatchBoost > 0 {
		w.ExactMatchBoost = cfg.ExactMatchBoost
	}
	if cfg.WrongStandardPenalty > 0 {
		w.WrongStandardPenalty = cfg.WrongStandardPenalty
	}
	return w
}

// initSeedFiles 扫描目录下文件并通过标准上传流程导入（幂等）。
func initSeedFiles(ctx context.Context, dir string, userRepo repository.UserRepository, uploadSvc service.UploadService) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("initSeedFiles: 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return
	}

	// 选择归属用户：优先 admin，不存在则取第一个
	var ownerUserID uint
	var ownerOrg string
	if admin, err := userRepo.FindByUsername("admin"); err == nil && admin != nil {
		ownerUserID = admin.ID
		ownerOrg = admin.PrimaryOrg
	} else {
		if users, err := userRepo.FindAll(); err == nil && len(users) > 0 {
			ownerUserID = users[0].ID
			ownerOrg = users[0].PrimaryOrg
		} else {
			log.Warnf("initSeedFiles: 未找到可用用户，跳过初始化导入")
			return
		}
	}

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}

		// 计算 MD5
		f, err := os.Open(path)
		if err != nil {
			log.Warnf("initSeedFiles: 打开文件失败: %s, err=%v", path, err)
			return nil
		}
		h := md5.New()
		size, copyErr := io.Copy(h, f)
		_ = f.Close()
		if copyErr != nil {
			log.Warnf("initSeedFiles: 读取文件失败: %s, err=%v", path, copyErr)
			return nil
		}
		fileMD5 := fmt.Sprintf("%x", h.Sum(nil))
		fileName := info.Name()

		// 幂等检查：已完成则跳过
		if uploaded, ferr := uploadSvc.FastUpload(ctx, fileMD5, ownerUserID); ferr == nil && uploaded {
			log.Infof("initSeedFiles: 已存在，跳过: %s (md5=%s)", fileName, fileMD5)
			return nil
		}

		// 分片上传
		const chunkSize int64 = 5 * 1024 * 1024
		totalChunks := int(math.Ceil(float64(size) / float64(chunkSize)))
		if totalChunks == 0 {
			log.Infof("initSeedFiles: 空文件跳过: %s", path)
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			log.Warnf("initSeedFiles: 重新打开文件失败: %s, err=%v", path, err)
			return nil
		}
		defer file.Close()

		for chunkIndex := 0; chunkIndex < totalChunks; chunkIndex++ {
			offset := int64(chunkIndex) * chunkSize
			if _, err := file.Seek(offset, io.SeekStart); err != nil {
				log.Warnf("initSeedFiles: Seek 失败: %s, chunk=%d, err=%v", path, chunkIndex, err)
				return nil
			}
			toRead := chunkSize
			if offset+toRead > size {
				toRead = size - offset
			}
			buf := make([]byte, toRead)
			if _, err := io.ReadFull(file, buf); err != nil {
				log.Warnf("initSeedFiles: 读取分片失败: %s, chunk=%d, err=%v", path, chunkIndex, err)
				return nil
			}
			// 适配 multipart.File
			cf := &chunkFile{Reader: bytes.NewReader(buf)}

			// 标记 is_public=true（全员可见），org 使用所有者主组织
			if _, _, err := uploadSvc.UploadChunk(ctx, fileMD5, fileName, size, chunkIndex, cf, ownerUserID, ownerOrg, true); err != nil {
				log.Warnf("initSeedFiles: 上传分片失败: %s, chunk=%d, err=%v", path, chunkIndex, err)
				return nil
			}
		}

		if _, err := uploadSvc.MergeChunks(ctx, fileMD5, fileName, ownerUserID); err != nil {
			log.Warnf("initSeedFiles: 合并失败: %s, err=%v", path, err)
			return nil
		}
		log.Infof("initSeedFiles: 导入完成并已触发向量化: %s", fileName)
		return nil
	})
	if walkErr != nil {
		log.Warnf("initSeedFiles: 遍历目录发生错误: %v", walkErr)
	}
}

// chunkFile 适配 bytes.Reader 到 multipart.File 所需接口
type chunkFile struct{ Reader *bytes.Reader }

func (c *chunkFile) Read(p []byte) (int, error)              { return c.Reader.Read(p) }
func (c *chunkFile) ReadAt(p []byte, off int64) (int, error) { return c.Reader.ReadAt(p, off) }
func (c *chunkFile) Seek(offset int64, whence int) (int64, error) {
	return c.Reader.Seek(offset, whence)
}
func (c *chunkFile) Close() error { return nil }
