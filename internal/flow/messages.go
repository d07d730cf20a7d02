package flow

// User-facing texts. Replies are sent in HTML parse mode.
const (
	msgWelcome          = "👋 Добро пожаловать в <b>DietCoach</b>!\n\nЯ помогу составить персональный план питания с учетом вашего вида спорта, тренировок и образа жизни.\n\nДля начала заполним ваш профиль."
	msgWelcomeBack      = "👋 С возвращением!"
	msgMainMenu         = "🏠 <b>Главное меню</b>\n\nВыберите действие:"
	msgProfileSaved     = "✅ Профиль сохранен!"
	msgProfileFailed    = "😔 Не удалось сохранить профиль. Попробуйте отправить ответ еще раз чуть позже."
	msgUpdateProfile    = "✏️ Обновим ваш профиль."
	msgCancelled        = "❌ Действие отменено. Нажмите /start, чтобы начать заново."
	msgAwaitRestart     = "Нажмите /start, чтобы начать."
	msgSessionLost      = "⚠️ Сессия потеряна. Пожалуйста, нажмите /start, чтобы начать заново."
	msgUnavailable      = "😔 Сервис временно недоступен. Попробуйте позже."
	msgInternalError    = "😔 Что-то пошло не так. Попробуйте еще раз или нажмите /start."
	msgBusy             = "⏳ Я еще обрабатываю ваш предыдущий запрос, подождите немного."
	msgUseButtons       = "Пожалуйста, воспользуйтесь кнопками ниже."
	msgFinishFirst      = "Сначала ответьте на текущий вопрос или нажмите /cancel."
	msgGeneratePlan     = "🍽 <b>Создание плана питания</b>\n\nЯ задам несколько вопросов о ваших тренировках, а затем о повседневной активности. На основе ответов я составлю персональный план."
	msgQuestionsLoading = "⏳ Подбираю вопросы..."
	msgNoQuestions      = "😔 Не удалось подготовить вопросы. Попробуйте позже."
	msgTrainingDone     = "✅ Вопросы о тренировках завершены!\n\nТеперь несколько вопросов о вашей повседневной активности."
	msgPlanLoading      = "⏳ Составляю персональный план питания. Это может занять до пары минут..."
	msgPlanReady        = "✅ Ваш план питания готов!"
	msgPlanFailed       = "😔 Не удалось составить план сейчас. Ваши ответы сохранены, попробуйте позже."
	msgNoPlans          = "📭 У вас пока нет сохраненных планов."
	msgSavedPlans       = "📋 <b>Ваши планы питания:</b>"
	msgPlanNotFound     = "❌ План не найден."
	msgPlanAlreadySaved = "✅ План уже сохранен. Все созданные планы доступны в разделе «Мои планы»."
)

// Parameter collection prompts and re-prompts.
const (
	promptSportType = "🏃 Каким видом спорта вы занимаетесь?"
	promptGender    = "⚧ Укажите ваш пол (мужской/женский):"
	promptAge       = "🎂 Сколько вам лет?"
	promptWeight    = "⚖️ Ваш вес в килограммах?"
	promptHeight    = "📏 Ваш рост в сантиметрах?"
	promptGoal      = "🎯 Какая у вас цель? (например: набор мышечной массы, снижение веса, подготовка к соревнованиям)"
	promptCompDate  = "🏆 Когда у вас ближайшие соревнования? Укажите дату в формате ДД.ММ.ГГГГ или напишите «нет»."

	invalidSportType = "❌ Вид спорта не может быть пустым."
	invalidGender    = "❌ Пожалуйста, укажите «мужской» или «женский»."
	invalidAge       = "❌ Возраст должен быть целым числом от 10 до 100."
	invalidWeight    = "❌ Вес должен быть числом от 30 до 200 кг."
	invalidHeight    = "❌ Рост должен быть числом от 100 до 250 см."
	invalidGoal      = "❌ Цель не может быть пустой."
	invalidCompDate  = "❌ Укажите будущую дату в формате ДД.ММ.ГГГГ или напишите «нет»."
)
